package main

import (
	"fmt"

	"TodoApp/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var hashCost int

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for seeding users by hand",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := "admin"
		if len(args) > 0 {
			password = args[0]
		}
		h, err := service.HashPassword(password, hashCost)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), h)
		return err
	},
}

func init() {
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	rootCmd.AddCommand(hashPasswordCmd)
}
