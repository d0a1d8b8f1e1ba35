package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/boards/internal/debug"
	"github.com/steveyegge/boards/internal/service"
	"github.com/steveyegge/boards/internal/types"
	"github.com/steveyegge/boards/internal/ui"
)

var userCmd = &cobra.Command{
	Use:     "user",
	Aliases: []string{"users"},
	Short:   "Manage users",
	GroupID: "data",
}

var userCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Register a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := svc.CreateUser(rootCtx, service.UserInput{Name: args[0], Email: mustString(cmd.Flags(), "email")})
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(user)
			return nil
		}
		debug.PrintNormal("%s Created user %s (%s)\n", ui.RenderPass(ui.IconPass), user.Name, ui.RenderMuted(user.ID))
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := svc.ListUsers(rootCtx)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(users)
			return nil
		}
		for _, u := range users {
			fmt.Printf("%-20s %-30s %s\n", u.Name, u.Email, ui.RenderMuted(u.ID))
		}
		return nil
	},
}

var userUpdateCmd = &cobra.Command{
	Use:   "update USER",
	Short: "Change a user's name or email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var user *types.User
		id, err := resolveUserID(rootCtx, args[0])
		if err == nil {
			user, err = svc.GetUser(rootCtx, id)
		}
		if err != nil {
			return err
		}
		in := service.UserInput{Name: user.Name, Email: user.Email}
		if cmd.Flags().Changed("name") {
			in.Name = mustString(cmd.Flags(), "name")
		}
		if cmd.Flags().Changed("email") {
			in.Email = mustString(cmd.Flags(), "email")
		}
		updated, err := svc.UpdateUser(rootCtx, user.ID, in)
		if err != nil {
			return err
		}
		if jsonOutput {
			outputJSON(updated)
			return nil
		}
		debug.PrintNormal("%s Updated user %s\n", ui.RenderPass(ui.IconPass), updated.Name)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringP("email", "e", "", "Email address (unique)")
	userUpdateCmd.Flags().String("name", "", "New name")
	userUpdateCmd.Flags().StringP("email", "e", "", "New email address")
	userCmd.AddCommand(userCreateCmd, userListCmd, userUpdateCmd)
	rootCmd.AddCommand(userCmd)
}
