package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"folio/internal/auth"
)

var adminFlag bool

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative tasks",
}

var createUserCmd = &cobra.Command{
	Use:   "create-user <username> <display-name> <password>",
	Short: "Create a user with a local password",
	Args:  cobra.ExactArgs(3),
	RunE:  runCreateUser,
}

func init() {
	createUserCmd.Flags().BoolVar(&adminFlag, "admin", false, "grant administrator rights")
	adminCmd.AddCommand(createUserCmd)
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	// Registering a user does not touch the session store.
	svc := auth.NewService(auth.NewRepository(db), nil, logger)
	user, err := svc.RegisterUser(cmd.Context(), args[0], args[1], args[2], adminFlag)
	if err != nil {
		return err
	}
	logger.Info("user created", zap.Int("user_id", user.ID), zap.String("username", user.Username), zap.Bool("admin", user.IsAdmin))
	cmd.Printf("created user %s (id %d)\n", user.Username, user.ID)
	return nil
}
