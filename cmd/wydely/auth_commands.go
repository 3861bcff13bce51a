package main

import (
	"errors"
	"time"

	"github.com/jrsteele09/wydely-client/apiclient"
	"github.com/jrsteele09/wydely-client/authstore"
	"github.com/jrsteele09/wydely-client/session"
	"github.com/spf13/cobra"
)

func newSignupCommand() *cobra.Command {
	var req apiclient.SignupRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and business, then request a verification code",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if err := a.startSession(ctx, session.RouteSignup); err != nil {
				return err
			}
			// a new account never continues a stale session
			if err := a.manager.ClearAuthDataFromStorage(ctx); err != nil {
				return err
			}

			req.Password = passwordFrom(req.Password)
			challenge, err := a.client.Signup(ctx, req)
			if err != nil {
				return err
			}
			a.nav.Navigate(session.RouteVerifyOTP)
			a.printf("%s\nRun `wydely verify-otp --email %s --code <code>` within %s.\n",
				challenge.Message, challenge.Email, time.Duration(challenge.ExpiresIn)*time.Second)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Your name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (or WYDELY_PASSWORD)")
	cmd.Flags().StringVar(&req.BusinessName, "business", "", "Business name")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "WhatsApp business phone in E.164 form")
	return cmd
}

func newLoginCommand() *cobra.Command {
	var req apiclient.LoginRequest

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if err := a.startSession(ctx, session.RouteLogin); err != nil {
				return err
			}
			if err := a.manager.ClearAuthDataFromStorage(ctx); err != nil {
				return err
			}

			req.Password = passwordFrom(req.Password)
			result, err := a.client.Login(ctx, req)
			if err != nil {
				return err
			}
			if result.RequiresOTP {
				a.nav.Navigate(session.RouteVerifyOTP)
				a.printf("%s\nRun `wydely verify-otp --email %s --code <code>`.\n", result.Message, req.Email)
				return nil
			}

			record, err := apiclient.RecordFromPayload(result.AuthPayload)
			if err != nil {
				return err
			}
			return establish(a, cmd, record)
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (or WYDELY_PASSWORD)")
	return cmd
}

func newVerifyOTPCommand() *cobra.Command {
	var req apiclient.VerifyOTPRequest

	cmd := &cobra.Command{
		Use:   "verify-otp",
		Short: "Confirm a verification code and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if err := a.startSession(ctx, session.RouteVerifyOTP); err != nil {
				return err
			}

			record, err := a.client.VerifyOTP(ctx, req)
			if err != nil {
				return err
			}
			return establish(a, cmd, record)
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Email address the code was sent to")
	cmd.Flags().StringVar(&req.OTP, "code", "", "Six digit verification code")
	return cmd
}

func establish(a *app, cmd *cobra.Command, record authstore.AuthRecord) error {
	if err := a.manager.SetAuthData(cmd.Context(), record); err != nil {
		return err
	}
	a.nav.Navigate(session.RouteHome)
	a.printf("Logged in as %s (business %s)\n", record.Email, record.TenantID)
	return nil
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if err := a.startSession(cmd.Context(), session.RouteHome); err != nil {
				return err
			}

			record, ok := a.manager.Record()
			if !ok {
				a.printf("state: %s\n", a.manager.State())
				return nil
			}
			expiresAt, _ := authstore.ParseExpiry(record.AccessTokenExpiresAt)
			a.printf("state:      %s\n", a.manager.State())
			a.printf("email:      %s\n", record.Email)
			a.printf("business:   %s\n", record.TenantID)
			a.printf("session:    %s\n", record.SessionID)
			a.printf("expires at: %s (in %s)\n", record.AccessTokenExpiresAt, time.Until(expiresAt).Round(time.Second))
			return nil
		},
	}
}

func newWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Fetch the profile of the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if err := a.startSession(cmd.Context(), session.RouteHome); err != nil {
				return err
			}
			if err := a.requireSession(); err != nil {
				return err
			}

			profile, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("%s <%s>\n%s (%s)\n", profile.Name, profile.Email, profile.BusinessName, profile.BusinessID)
			return nil
		},
	}
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session on the backend and remove it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if err := a.startSession(ctx, session.RouteHome); err != nil {
				return err
			}
			if !a.manager.IsAuthenticated() {
				a.printf("Not logged in\n")
				return nil
			}

			if err := a.client.Logout(ctx); err != nil {
				var apiErr *apiclient.APIError
				if !errors.As(err, &apiErr) {
					return err
				}
				// the local session goes regardless of what the backend says
				a.logger.Warn().Err(err).Msg("backend logout failed")
			}
			if err := a.manager.Logout(ctx); err != nil {
				return err
			}
			a.printf("Logged out\n")
			return nil
		},
	}
}
