package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"challengeapp/internal/observability"
	"challengeapp/internal/services"
	contextutils "challengeapp/internal/utils"
)

// UserCommands returns the user management commands
func UserCommands(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	userCmd.AddCommand(userListCmd(userService))
	userCmd.AddCommand(userCreateCmd(userService))
	userCmd.AddCommand(userResetPasswordCmd(userService))
	userCmd.AddCommand(userSetSubscriptionsCmd(userService))

	return userCmd
}

func userListCmd(userService services.UserServiceInterface) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()
			users, err := userService.ListUsers(ctx)
			if err != nil {
				return contextutils.WrapError(err, "failed to list users")
			}
			if len(users) == 0 {
				fmt.Println("No users found.")
				return nil
			}

			fmt.Printf("%-5s %-20s %-30s %-10s %-40s\n", "ID", "Username", "Email", "Role", "Subscriptions")
			fmt.Println(strings.Repeat("-", 105))
			for _, u := range users {
				fmt.Printf("%-5d %-20s %-30s %-10s %-40s\n", u.ID, u.Username, u.Email.String, u.Role, u.Subscriptions)
			}
			return nil
		},
	}
}

func userCreateCmd(userService services.UserServiceInterface) *cobra.Command {
	var email, role, subscriptions string

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			var subs []string
			if subscriptions != "" {
				subs = strings.Split(subscriptions, ",")
			}

			user, err := userService.CreateUser(context.Background(), args[0], email, password, role, subs)
			if err != nil {
				return contextutils.WrapError(err, "failed to create user")
			}
			fmt.Printf("Created user %q (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "student", "role (student|teacher|admin)")
	cmd.Flags().StringVar(&subscriptions, "subscriptions", "", "comma-separated subject codes")
	return cmd
}

func userResetPasswordCmd(userService services.UserServiceInterface) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Reset a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()
			user, err := userService.GetUserByUsername(ctx, args[0])
			if err != nil {
				return contextutils.WrapError(err, "failed to find user")
			}

			password, err := promptPassword("New password: ")
			if err != nil {
				return err
			}
			if err := userService.UpdatePassword(ctx, user.ID, password); err != nil {
				return contextutils.WrapError(err, "failed to update password")
			}
			fmt.Printf("Password updated for %q\n", user.Username)
			return nil
		},
	}
}

func userSetSubscriptionsCmd(userService services.UserServiceInterface) *cobra.Command {
	return &cobra.Command{
		Use:   "set-subscriptions <username> <subjects>",
		Short: "Replace a user's subject subscriptions",
		Long:  "Replace a user's subject subscriptions with a comma-separated list, e.g.\n\n  adm user set-subscriptions alice maths,histoire",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()
			user, err := userService.GetUserByUsername(ctx, args[0])
			if err != nil {
				return contextutils.WrapError(err, "failed to find user")
			}

			var subs []string
			for _, code := range strings.Split(args[1], ",") {
				if code = strings.TrimSpace(code); code != "" {
					subs = append(subs, code)
				}
			}
			if err := userService.UpdateSubscriptions(ctx, user.ID, subs); err != nil {
				return contextutils.WrapError(err, "failed to update subscriptions")
			}
			fmt.Printf("Subscriptions for %q set to %s\n", user.Username, strings.Join(subs, ","))
			return nil
		},
	}
}
