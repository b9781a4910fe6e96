package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"support_directory_go/config"
	"support_directory_go/db"
	"support_directory_go/models"
	"support_directory_go/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func main() {
	if err := command().Execute(); err != nil {
		os.Exit(1)
	}
}

func command() *cobra.Command {
	var (
		name      string
		email     string
		role      string
		hidden    bool
		mintToken bool
		tokenTTL  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Provision a caller and optionally mint an access token",
		Long: `Create an admin, case worker or client account in the configured store.

Examples:
  # Interactive case worker account
  create-user --role=caseworker

  # Client account hidden from other staff, with a 30 day token
  create-user --name="Robin Client" --email=robin@example.org --role=client --hidden --token --token-ttl=720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			database, err := db.Initialize(cfg, zap.NewNop())
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close(database) //nolint:errcheck

			reader := bufio.NewReader(os.Stdin)
			out := cmd.OutOrStdout()

			if name == "" {
				fmt.Fprint(out, "Name: ")
				name = readLine(reader)
			}
			if email == "" {
				fmt.Fprint(out, "Email: ")
				email = readLine(reader)
			}

			// Get password securely
			fmt.Fprint(out, "Password: ")
			passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			user, err := services.ProvisionUser(context.Background(), database, services.SystemActor, services.NewUserInput{
				Name:     name,
				Email:    email,
				Password: string(passwordBytes),
				Role:     role,
				Hidden:   hidden,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "✓ User created successfully!")
			fmt.Fprintf(out, "  ID: %s\n", user.ID)
			fmt.Fprintf(out, "  Name: %s\n", user.Name)
			fmt.Fprintf(out, "  Email: %s\n", user.Email)
			fmt.Fprintf(out, "  Role: %s\n", user.Role)

			if mintToken {
				session, err := services.CreateSession(database, user.ID, "", "create-user", tokenTTL)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  Token: %s\n", session.Token)
				fmt.Fprintf(out, "  Expires: %s\n", session.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (prompted when empty)")
	cmd.Flags().StringVar(&email, "email", "", "Login email (prompted when empty)")
	cmd.Flags().StringVar(&role, "role", models.RoleCaseworker, "Role: admin, caseworker or client")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Hide the member from staff other than admins and their case worker")
	cmd.Flags().BoolVar(&mintToken, "token", false, "Mint a bearer token for the new user")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", services.DefaultSessionDuration, "Lifetime of the minted token")

	return cmd
}

func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
