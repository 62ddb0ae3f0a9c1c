package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"assetline/internal/config"
	"assetline/internal/db"
	"assetline/internal/decommission"
	"assetline/internal/domain"
	"assetline/internal/inspection"
	"assetline/internal/inventory"
	"assetline/internal/journal"
	"assetline/internal/migrate"
	"assetline/internal/org"
	"assetline/internal/reconcile"
	"assetline/internal/session"
	"assetline/internal/stubserver"
	"assetline/internal/transport"
)

var rootCmd = &cobra.Command{
	Use:   "al",
	Short: "Assetline CLI",
	Long: `Assetline is the staff-side client for the asset management backend.
It registers, inspects, transfers and decommissions physical devices and
reconciles the backend's per-endpoint status encodings into one view:
- Devices: tracked assets with exactly one operational state at a time.
- Inspections: requests gating a new or flagged device out of under-revision.
- Decommissionings: proposals to retire a device, closed by a single review.
- Views: 'al device show' merges device state with any open request and
  flags state that is out of sync instead of papering over it.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ASSETLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("api", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().String("token", "", "bearer token (overrides stored session)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("api", rootCmd.PersistentFlags().Lookup("api"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(deviceCmd())
	rootCmd.AddCommand(inspectionCmd())
	rootCmd.AddCommand(decomCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(stubCmd())
}

// app bundles the wired client components for one invocation.
type app struct {
	Session         *session.Store
	Inventory       *inventory.Client
	Inspections     *inspection.Workflow
	Decommissioning *decommission.Workflow
	Org             *org.Client
	Reconcile       *reconcile.Service
	cleanup         func()
}

func buildApp(withJournal bool) (*app, error) {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	baseURL := viper.GetString("api")
	if baseURL == "" && cfg != nil {
		baseURL = cfg.API.BaseURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("backend URL not set; pass --api or create %s", config.Path(workspace))
	}

	sess := session.NewStore()
	token := viper.GetString("token")
	if token == "" {
		token = loadToken(workspace)
	}
	if token != "" {
		if _, err := sess.SetToken(token); err != nil {
			return nil, err
		}
	}

	httpClient := transport.New(baseURL, sess)
	if cfg != nil {
		if cfg.API.TimeoutSeconds > 0 {
			httpClient.Timeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second
		}
		httpClient.ReadRetries = cfg.API.ReadRetries
	}

	a := &app{
		Session:         sess,
		Inventory:       inventory.New(httpClient),
		Inspections:     inspection.New(httpClient, sess),
		Decommissioning: decommission.New(httpClient, sess),
		Org:             org.New(httpClient),
		cleanup:         func() {},
	}
	a.Reconcile = reconcile.New(a.Inventory, a.Inspections, a.Decommissioning, a.Org)

	if withJournal {
		conn, err := db.Open(db.Config{Workspace: workspace})
		if err != nil {
			return nil, err
		}
		if err := migrate.Migrate(conn); err != nil {
			conn.Close()
			return nil, err
		}
		writer := &journal.Writer{DB: conn}
		a.Inspections.Journal = writer
		a.Decommissioning.Journal = writer
		a.cleanup = func() { conn.Close() }
	}
	return a, nil
}

func withApp(withJournal bool, fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(withJournal)
		if err != nil {
			return err
		}
		defer a.cleanup()
		return fn(cmd.Context(), a)
	}
}

func deviceCmd() *cobra.Command {
	dev := &cobra.Command{Use: "device", Short: "Inspect devices"}
	dev.AddCommand(deviceListCmd())
	dev.AddCommand(deviceShowCmd())
	return dev
}

func deviceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List devices",
		RunE: withApp(false, func(ctx context.Context, a *app) error {
			devices, err := a.Inventory.Devices(ctx)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(devices)
			}
			t := newTable("ID", "NAME", "TYPE", "STATE", "DEPARTMENT")
			for _, d := range devices {
				dept := d.DepartmentName
				if dept == "" {
					dept = fmt.Sprintf("#%d", d.DepartmentID)
				}
				t.AppendRow(table.Row{d.ID, d.Name, d.Type, d.State, dept})
			}
			t.Render()
			return nil
		}),
	}
}

func deviceShowCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the reconciled view of a device",
		RunE: withApp(false, func(ctx context.Context, a *app) error {
			view, err := a.Reconcile.BuildDeviceView(ctx, id)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(view)
			}
			t := newTable("FIELD", "VALUE")
			t.AppendRow(table.Row{"id", view.Device.ID})
			t.AppendRow(table.Row{"name", view.Device.Name})
			t.AppendRow(table.Row{"state", view.State})
			t.AppendRow(table.Row{"active workflow", view.ActiveWorkflow})
			if view.Inspection != nil {
				t.AppendRow(table.Row{"inspection request", view.Inspection.RequestID})
			}
			if view.Decommissioning != nil {
				t.AppendRow(table.Row{"decommissioning request", view.Decommissioning.ID})
			}
			if view.Warning != nil {
				t.AppendRow(table.Row{"warning", fmt.Sprintf("%s: %s", view.Warning.Kind, view.Warning.Detail)})
			}
			t.Render()
			return nil
		}),
	}
	cmd.Flags().Int64Var(&id, "id", 0, "device id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func inspectionCmd() *cobra.Command {
	insp := &cobra.Command{Use: "inspection", Short: "Manage inspection requests"}
	insp.AddCommand(inspectionListCmd())
	insp.AddCommand(inspectionDecideCmd())
	return insp
}

func inspectionListCmd() *cobra.Command {
	var technician int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending inspection requests",
		RunE: withApp(false, func(ctx context.Context, a *app) error {
			if technician == 0 {
				user, err := a.Session.Current()
				if err != nil {
					return err
				}
				technician = user.ID
			}
			requests, err := a.Inspections.ListPending(ctx, technician)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(requests)
			}
			t := newTable("REQUEST", "DEVICE", "REQUESTED", "STATUS")
			for _, r := range requests {
				t.AppendRow(table.Row{r.RequestID, deviceLabel(r.DeviceID, r.DeviceName), r.RequestDate, r.Status})
			}
			t.Render()
			return nil
		}),
	}
	cmd.Flags().Int64Var(&technician, "technician", 0, "technician id (defaults to the logged-in user)")
	return cmd
}

func inspectionDecideCmd() *cobra.Command {
	var requestID int64
	var approve, reject bool
	var reason string
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Approve or reject an inspection request",
		RunE: withApp(true, func(ctx context.Context, a *app) error {
			if approve == reject {
				return fmt.Errorf("pass exactly one of --approve or --reject")
			}
			decided, err := a.Inspections.Decide(ctx, inspection.DecideOptions{
				RequestID: requestID,
				Approved:  approve,
				Reason:    reason,
			})
			if err != nil {
				return err
			}
			return printJSON(decided)
		}),
	}
	cmd.Flags().Int64Var(&requestID, "request", 0, "inspection request id")
	cmd.Flags().BoolVar(&approve, "approve", false, "approve the request")
	cmd.Flags().BoolVar(&reject, "reject", false, "reject the request")
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason (required with --reject)")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func decomCmd() *cobra.Command {
	dec := &cobra.Command{Use: "decom", Short: "Manage decommissioning requests"}
	dec.AddCommand(decomListCmd())
	dec.AddCommand(decomHistoryCmd())
	dec.AddCommand(decomCreateCmd())
	dec.AddCommand(decomReviewCmd())
	return dec
}

func decomListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending decommissioning requests",
		RunE: withApp(false, func(ctx context.Context, a *app) error {
			requests, err := a.Decommissioning.ListPending(ctx)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(requests)
			}
			t := newTable("REQUEST", "DEVICE", "REASON", "REQUESTED", "STATUS")
			for _, r := range requests {
				t.AppendRow(table.Row{r.ID, deviceLabel(r.DeviceID, r.DeviceName), r.Reason, r.RequestDate, r.Status})
			}
			t.Render()
			return nil
		}),
	}
}

func decomHistoryCmd() *cobra.Command {
	var deviceID int64
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a device's decommissioning history",
		RunE: withApp(false, func(ctx context.Context, a *app) error {
			requests, err := a.Decommissioning.History(ctx, deviceID)
			if err != nil {
				return err
			}
			return printJSON(requests)
		}),
	}
	cmd.Flags().Int64Var(&deviceID, "device", 0, "device id")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

func decomCreateCmd() *cobra.Command {
	var deviceID int64
	var reason, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Propose retiring a device",
		RunE: withApp(true, func(ctx context.Context, a *app) error {
			created, err := a.Decommissioning.Create(ctx, decommission.CreateOptions{
				DeviceID:    deviceID,
				Reason:      domain.DecommissionReason(reason),
				Description: description,
			})
			if err != nil {
				return err
			}
			return printJSON(created)
		}),
	}
	cmd.Flags().Int64Var(&deviceID, "device", 0, "device id")
	cmd.Flags().StringVar(&reason, "reason", "", "reason (obsolete|beyond_repair|lost|end_of_lease|other)")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	_ = cmd.MarkFlagRequired("device")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func decomReviewCmd() *cobra.Command {
	var requestID, receiver, destination int64
	var approve, reject bool
	var description string
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Accept or reject a decommissioning request",
		RunE: withApp(true, func(ctx context.Context, a *app) error {
			if approve == reject {
				return fmt.Errorf("pass exactly one of --approve or --reject")
			}
			opts := decommission.ReviewOptions{
				RequestID:   requestID,
				Approved:    approve,
				Description: description,
			}
			if receiver != 0 {
				opts.ReceiverUserID = &receiver
			}
			if destination != 0 {
				opts.FinalDestinationID = &destination
			}
			reviewed, err := a.Decommissioning.Review(ctx, opts)
			if err != nil {
				return err
			}
			return printJSON(reviewed)
		}),
	}
	cmd.Flags().Int64Var(&requestID, "request", 0, "decommissioning request id")
	cmd.Flags().BoolVar(&approve, "approve", false, "accept the request")
	cmd.Flags().BoolVar(&reject, "reject", false, "reject the request")
	cmd.Flags().Int64Var(&receiver, "receiver", 0, "receiving user id (required with --approve)")
	cmd.Flags().Int64Var(&destination, "destination", 0, "final destination id (required with --approve)")
	cmd.Flags().StringVar(&description, "description", "", "review notes")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func loginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token for this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("--token required")
			}
			sess := session.NewStore()
			user, err := sess.SetToken(token)
			if err != nil {
				return err
			}
			workspace := viper.GetString("workspace")
			if err := saveToken(workspace, token); err != nil {
				return err
			}
			fmt.Printf("logged in as user %d (%s)\n", user.ID, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token issued by the backend")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if err := os.Remove(tokenPath(workspace)); err != nil && !os.IsNotExist(err) {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess := session.NewStore()
			token := viper.GetString("token")
			if token == "" {
				token = loadToken(viper.GetString("workspace"))
			}
			if token != "" {
				if _, err := sess.SetToken(token); err != nil {
					return err
				}
			}
			user, err := sess.Current()
			if err != nil {
				return err
			}
			return printJSON(user)
		},
	}
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Local action journal"}
	var limit int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent actions taken from this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			entries, err := journal.Writer{DB: conn}.Tail(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(entries)
			}
			t := newTable("TS", "ACTION", "DEVICE", "REQUEST", "ACTOR")
			for _, e := range entries {
				t.AppendRow(table.Row{e.TS, e.Action, e.DeviceID, e.RequestID, e.ActorID})
			}
			t.Render()
			return nil
		},
	}
	tail.Flags().IntVar(&limit, "limit", 20, "number of entries")
	lg.AddCommand(tail)
	return lg
}

func stubCmd() *cobra.Command {
	var addr string
	var seed bool
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run an in-memory stub backend for offline development",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := stubserver.New()
			if seed {
				srv.Seed()
			}
			fmt.Printf("stub backend listening on %s\n", addr)
			return http.ListenAndServe(addr, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().BoolVar(&seed, "seed", true, "seed demo inventory")
	return cmd
}

// --- helpers ---

func tokenPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".assetline", "token")
}

func saveToken(workspace, token string) error {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return err
	}
	return os.WriteFile(tokenPath(workspace), []byte(token), 0o600)
}

func loadToken(workspace string) string {
	data, err := os.ReadFile(tokenPath(workspace))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func deviceLabel(id int64, name string) string {
	if name != "" {
		return fmt.Sprintf("%s (#%d)", name, id)
	}
	return fmt.Sprintf("#%d", id)
}

func newTable(headers ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row(headers))
	return t
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
