package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/pgrooms/envelope"
	"github.com/c360studio/pgrooms/service"
)

// data unwraps the envelope payload for printing. Only a 200 envelope
// carries data.
func data[T any](resp *envelope.Response[T], err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return envelope.Data(resp)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func addListFlags(cmd *cobra.Command, q *service.ListQuery) {
	cmd.Flags().IntVar(&q.Page, "page", 0, "Page number")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "Page size")
	cmd.Flags().StringVar(&q.Search, "search", "", "Search text")
	cmd.Flags().StringVar(&q.Status, "status", "", "Filter by status")
}

func loginCmd(flags *globalFlags) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")

	cmd.RunE = withApp(flags, func(ctx context.Context, cmd *cobra.Command, app *App) (any, error) {
		if password == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return nil, errors.New("password required")
			}
			password = strings.TrimRight(line, "\r\n")
		}

		resp, err := app.Services().Auth.Login(ctx, service.Credentials{Email: email, Password: password})
		if err != nil {
			return nil, err
		}
		session, err := envelope.Data(resp)
		if err != nil {
			return nil, err
		}
		if session.User == nil {
			return map[string]string{"status": "logged in"}, nil
		}
		return session.User, nil
	})
	return cmd
}

func logoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			if _, err := app.Services().Auth.Logout(ctx); err != nil {
				return nil, err
			}
			return map[string]string{"status": "logged out"}, nil
		}),
	}
}

func profileCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			return data(app.Services().User.Profile(ctx))
		}),
	}
}

func propertyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "property",
		Short: "Manage properties",
	}

	var q service.ListQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List your properties",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			return data(app.Services().Property.List(ctx, q))
		}),
	}
	addListFlags(list, &q)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one property",
		Args:  cobra.ExactArgs(1),
	}
	get.RunE = func(c *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			return data(app.Services().Property.Get(ctx, id))
		})(c, args)
	}

	cmd.AddCommand(list, get)
	return cmd
}

func roomCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Manage rooms",
	}

	var q service.ListQuery
	list := &cobra.Command{
		Use:   "list <property-id>",
		Short: "List the rooms of a property",
		Args:  cobra.ExactArgs(1),
	}
	addListFlags(list, &q)
	list.RunE = func(c *cobra.Command, args []string) error {
		propertyID, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			return data(app.Services().Room.List(ctx, propertyID, q))
		})(c, args)
	}

	cmd.AddCommand(list)
	return cmd
}

func tenantCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	var q service.ListQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			return data(app.Services().Tenant.List(ctx, q))
		}),
	}
	addListFlags(list, &q)

	room := &cobra.Command{
		Use:   "room",
		Short: "Show the signed-in tenant's room",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			return data(app.Services().Tenant.RoomDetails(ctx))
		}),
	}

	cmd.AddCommand(list, room)
	return cmd
}

func paymentCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Payments",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show the payment summary",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			return data(app.Services().Payment.Stats(ctx))
		}),
	})
	return cmd
}

func dashboardCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the administrator overview",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			return data(app.Services().Dashboard.Overview(ctx))
		}),
	}
}

func locationsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Look up states and cities",
	}

	states := &cobra.Command{
		Use:   "states",
		Short: "List states",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			return data(app.Services().Location.States(ctx))
		}),
	}

	cities := &cobra.Command{
		Use:   "cities <state>",
		Short: "List the cities of a state",
		Args:  cobra.ExactArgs(1),
	}
	cities.RunE = func(c *cobra.Command, args []string) error {
		return withApp(flags, func(ctx context.Context, _ *cobra.Command, app *App) (any, error) {
			return data(app.Services().Location.Cities(ctx, args[0]))
		})(c, args)
	}

	cmd.AddCommand(states, cities)
	return cmd
}
