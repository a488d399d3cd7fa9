// AngelaMos | 2026
// license.go

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/license-gate/internal/license"
)

func activateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activate CODE",
		Short: "Activate a license code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			defer a.close()

			act, err := a.manager.Activate(cmd.Context(), a.session, args[0])
			switch {
			case errors.Is(err, license.ErrInvalidCode):
				return fmt.Errorf("%q is not a valid license code", args[0])
			case errors.Is(err, license.ErrRevoked):
				return errors.New("this license has been revoked, contact support")
			case err != nil:
				return err
			}

			verb := "Activated"
			if act.Existing {
				verb = "Already active:"
			}
			cmd.Printf("%s %s license %s\n", verb, act.DisplayName, act.License.Code)
			cmd.Printf("Questions remaining: %d\n", act.Status.QuestionsRemaining)
			cmd.Printf("Days remaining: %d\n", act.Status.DaysRemaining)
			return nil
		},
	}
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local license",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			defer a.close()

			l := a.manager.Current(cmd.Context(), a.session)
			if l == nil {
				cmd.Println("No license activated.")
				return nil
			}

			st := license.Evaluate(l, a.manager.Now())
			cmd.Printf("Code: %s\n", l.Code)
			cmd.Printf("Tier: %s\n", l.Tier)
			cmd.Printf("Status: %s\n", describeStatus(st))
			cmd.Printf("Questions used: %d of %d\n", l.QuestionsUsed, l.MaxQuestions)
			cmd.Printf("Days remaining: %d\n", st.DaysRemaining)
			return nil
		},
	}
}

func resetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the local license",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to delete the license without --yes")
			}

			if err := a.open(cmd); err != nil {
				return err
			}
			defer a.close()

			if err := a.manager.Reset(cmd.Context(), a.session); err != nil {
				return err
			}
			cmd.Println("License removed.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")

	return cmd
}
