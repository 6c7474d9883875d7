package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	authDomain "github.com/anonymort/whistle/internal/auth/domain"
	authUseCase "github.com/anonymort/whistle/internal/auth/usecase"
)

// RunCreateAccount creates an admin or investigator account. When password is empty it is read
// from io.Reader so it never lands in shell history. With enableTOTP the provisioning URI is
// printed once.
//
// Requirements: Database must be migrated and accessible.
func RunCreateAccount(
	ctx context.Context,
	accountUseCase authUseCase.AccountUseCase,
	logger *slog.Logger,
	username, role, password string,
	enableTOTP bool,
	format string,
	io IOTuple,
) error {
	parsedRole, err := authDomain.ParseRole(role)
	if err != nil {
		return err
	}

	if password == "" {
		password, err = promptForPassword(io)
		if err != nil {
			return fmt.Errorf("failed to get password: %w", err)
		}
	}

	logger.Info("creating account",
		slog.String("username", username),
		slog.String("role", string(parsedRole)),
		slog.Bool("totp", enableTOTP),
	)

	output, err := accountUseCase.Create(OperatorContext(ctx), &authDomain.CreateAccountInput{
		Username:   username,
		Role:       parsedRole,
		Password:   password,
		EnableTOTP: enableTOTP,
	})
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	if format == "json" {
		result := map[string]any{
			"id":       output.ID.String(),
			"username": username,
			"role":     string(parsedRole),
		}
		if output.TOTPURL != "" {
			result["totp_url"] = output.TOTPURL
		}
		if err := writeJSON(io.Writer, result); err != nil {
			return err
		}
	} else {
		outputAccountText(io.Writer, output, username, parsedRole)
	}

	logger.Info("account created successfully", slog.String("account_id", output.ID.String()))
	return nil
}

// promptForPassword reads the password and its confirmation from the reader.
func promptForPassword(io IOTuple) (string, error) {
	reader := bufio.NewReader(io.Reader)

	_, _ = fmt.Fprint(io.Writer, "Enter password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	_, _ = fmt.Fprint(io.Writer, "Confirm password: ")
	confirmation, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if strings.TrimRight(confirmation, "\r\n") != password {
		return "", fmt.Errorf("passwords do not match")
	}

	_, _ = fmt.Fprintln(io.Writer)
	return password, nil
}

func outputAccountText(
	writer io.Writer,
	output *authDomain.CreateAccountOutput,
	username string,
	role authDomain.Role,
) {
	_, _ = fmt.Fprintln(writer, "Account created successfully!")
	_, _ = fmt.Fprintf(writer, "Account ID: %s\n", output.ID.String())
	_, _ = fmt.Fprintf(writer, "Username:   %s\n", username)
	_, _ = fmt.Fprintf(writer, "Role:       %s\n", role)
	if output.TOTPURL != "" {
		_, _ = fmt.Fprintf(writer, "TOTP URL:   %s\n", output.TOTPURL)
		_, _ = fmt.Fprintln(writer, "\nIMPORTANT: The TOTP URL is shown only once. Add it to an authenticator app now.")
	}
}
