package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mallardhq/mallard/internal/cli/config"
	"github.com/mallardhq/mallard/internal/cli/output"
	"github.com/mallardhq/mallard/internal/migrate"
	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, json
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run a project health check",
		Long: `Analyze the project for problems before they bite.

The doctor command inspects the configuration, the state store, every
configured target, and the migration state of the selected target, then
reports:
- Health checks grouped by category
- Health score (0-100)
- Actionable recommendations`,
		Example: `  # Run health check
  mallard doctor

  # Output as JSON
  mallard doctor --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         DoctorSummary `json:"summary"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// DoctorSummary contains project-level counts.
type DoctorSummary struct {
	Targets    int `json:"targets"`
	Migrations int `json:"migrations"`
	Applied    int `json:"applied"`
	Pending    int `json:"pending"`
	Seeds      int `json:"seeds"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	c, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	r := rendererForFormat(cmd, c, opts.Format)
	doctorOutput := buildDoctorOutput(cmd.Context(), c)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(doctorOutput)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, doctorOutput)
	default:
		return renderDoctorText(r, doctorOutput)
	}
}

func buildDoctorOutput(ctx context.Context, c *CommandContext) *DoctorOutput {
	summary := DoctorSummary{
		Targets: len(c.Cfg.Targets),
		Seeds:   countSeeds(c.Cfg.SeedsDir),
	}

	checks := []HealthCheck{
		checkConfigFile(),
		checkTargetsDefined(c),
		checkStateStore(c),
		checkConnectivity(ctx, c),
		checkExtensions(ctx, c),
		checkMigrationsDir(c),
	}

	migCheck := checkMigrationState(ctx, c, &summary)
	checks = append(checks, migCheck)

	sort.Slice(checks, func(i, j int) bool {
		if checks[i].Group != checks[j].Group {
			return checks[i].Group < checks[j].Group
		}
		return checks[i].RuleID < checks[j].RuleID
	})

	issueCount := 0
	for _, check := range checks {
		issueCount += check.IssueCount
	}

	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks, summary.Migrations),
		Recommendations: generateRecommendations(checks),
		IssueCount:      issueCount,
	}
}

func checkConfigFile() HealthCheck {
	check := HealthCheck{RuleID: "CF01", Name: "Config file", Group: "configuration", Status: "pass"}
	if path := config.GetConfigFileUsed(); path != "" {
		check.Details = []string{"using " + path}
		return check
	}
	check.Status = "warn"
	check.IssueCount = 1
	check.Details = []string{"no config file found; targets come from the environment"}
	return check
}

func checkTargetsDefined(c *CommandContext) HealthCheck {
	names := c.Cfg.TargetNames()
	return HealthCheck{
		RuleID:  "CF02",
		Name:    "Targets defined",
		Group:   "configuration",
		Status:  "pass",
		Details: []string{fmt.Sprintf("%d target(s): %s", len(names), strings.Join(names, ", "))},
	}
}

func checkStateStore(c *CommandContext) HealthCheck {
	check := HealthCheck{RuleID: "ST01", Name: "State store", Group: "state", Status: "pass"}
	_, done, err := c.OpenState()
	if err != nil {
		check.Status = "warn"
		check.IssueCount = 1
		check.Details = []string{err.Error(), "query and migration history will not be recorded"}
		return check
	}
	done()
	check.Details = []string{"using " + c.Cfg.StatePath}
	return check
}

func checkConnectivity(ctx context.Context, c *CommandContext) HealthCheck {
	check := HealthCheck{RuleID: "TG01", Name: "Target connectivity", Group: "target", Status: "pass"}
	for _, name := range c.Cfg.TargetNames() {
		status := probeTarget(ctx, c, name)
		if status == "ok" {
			check.Details = append(check.Details, name+": ok")
			continue
		}
		check.IssueCount++
		check.Details = append(check.Details, name+": "+status)
		// An unreachable selected target blocks everything; others just warn.
		if name == c.Cfg.TargetName {
			check.Status = "error"
		} else if check.Status == "pass" {
			check.Status = "warn"
		}
	}
	return check
}

// checkExtensions verifies that the extensions configured on duckdb targets
// actually load. Connect installs and loads each one, so the check connects
// and confirms the engine reports them loaded.
func checkExtensions(ctx context.Context, c *CommandContext) HealthCheck {
	check := HealthCheck{RuleID: "TG02", Name: "DuckDB extensions", Group: "target", Status: "pass"}

	configured := 0
	for _, name := range c.Cfg.TargetNames() {
		exts := configuredExtensions(c.Cfg.Targets[name])
		if len(exts) == 0 {
			continue
		}
		configured += len(exts)

		loaded, err := loadedExtensions(ctx, c, name)
		if err != nil {
			// TG01 already grades reachability; here it only blocks the check.
			check.IssueCount++
			if check.Status == "pass" {
				check.Status = "warn"
			}
			check.Details = append(check.Details, name+": cannot check: "+err.Error())
			continue
		}
		for _, ext := range exts {
			if loaded[ext] {
				check.Details = append(check.Details, fmt.Sprintf("%s: %s loaded", name, ext))
				continue
			}
			check.IssueCount++
			check.Status = "error"
			check.Details = append(check.Details, fmt.Sprintf("%s: %s not loaded", name, ext))
		}
	}
	if configured == 0 {
		check.Details = []string{"no extensions configured"}
	}
	return check
}

// configuredExtensions reads the extensions list from a duckdb target's
// params. Koanf delivers YAML lists as []any.
func configuredExtensions(t *core.TargetConfig) []string {
	if t.Type != "duckdb" {
		return nil
	}
	var exts []string
	switch v := t.Params["extensions"].(type) {
	case []string:
		exts = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				exts = append(exts, s)
			}
		}
	}
	return exts
}

func loadedExtensions(ctx context.Context, c *CommandContext, name string) (map[string]bool, error) {
	t := c.Cfg.Targets[name]
	adp, err := adapter.Create(t, c.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, targetPingTimeout)
	defer cancel()

	if err := adp.Connect(ctx, t); err != nil {
		return nil, err
	}
	defer func() { _ = adp.Close() }()

	rows, err := adp.Query(ctx, "SELECT extension_name FROM duckdb_extensions() WHERE loaded")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	loaded := make(map[string]bool)
	for rows.Next() {
		var ext string
		if err := rows.Scan(&ext); err != nil {
			return nil, err
		}
		loaded[ext] = true
	}
	return loaded, rows.Err()
}

func checkMigrationsDir(c *CommandContext) HealthCheck {
	check := HealthCheck{RuleID: "MG01", Name: "Migrations directory", Group: "migrations", Status: "pass"}
	info, err := os.Stat(c.Cfg.MigrationsDir)
	switch {
	case err != nil:
		check.Status = "warn"
		check.IssueCount = 1
		check.Details = []string{c.Cfg.MigrationsDir + " does not exist"}
	case !info.IsDir():
		check.Status = "error"
		check.IssueCount = 1
		check.Details = []string{c.Cfg.MigrationsDir + " is not a directory"}
	}
	return check
}

// checkMigrationState compares migration files against the selected target's
// tracking table. It fills in the migration counts of summary as a side
// effect so the target is only connected once.
func checkMigrationState(ctx context.Context, c *CommandContext, summary *DoctorSummary) HealthCheck {
	check := HealthCheck{RuleID: "MG02", Name: "Migration state", Group: "migrations", Status: "pass"}

	files, err := migrate.LoadDir(c.Cfg.MigrationsDir)
	if err != nil {
		check.Status = "error"
		check.IssueCount = 1
		check.Details = []string{err.Error()}
		return check
	}
	summary.Migrations = len(files)

	adp, cleanup, err := c.Connect(ctx)
	if err != nil {
		check.Status = "error"
		check.IssueCount = 1
		check.Details = []string{"cannot check: " + err.Error()}
		return check
	}
	defer cleanup()

	runner := migrate.NewRunner(adp, c.Cfg.MigrationsDir, migrate.WithLogger(c.Logger))
	statuses, err := runner.Status(ctx)
	if err != nil {
		check.Status = "error"
		check.IssueCount = 1
		check.Details = []string{"cannot check: " + err.Error()}
		return check
	}

	var pending, missing int
	for _, s := range statuses {
		switch {
		case s.Missing:
			missing++
			check.Details = append(check.Details, fmt.Sprintf("version %d is recorded but its file is gone", s.Version))
		case s.Applied:
			summary.Applied++
		default:
			pending++
		}
	}
	summary.Pending = pending

	switch {
	case missing > 0:
		check.Status = "error"
		check.IssueCount = missing + pending
	case pending > 0:
		check.Status = "warn"
		check.IssueCount = pending
		check.Details = append(check.Details, fmt.Sprintf("%d migration(s) pending", pending))
	}
	return check
}

func countSeeds(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".csv" {
			n++
		}
	}
	return n
}

// calculateHealthScore computes a health score from 0-100.
// Issues subtract from a base of 100; errors count double. Larger projects
// scale the per-issue penalty down so one stale migration does not tank
// the score.
func calculateHealthScore(checks []HealthCheck, migrationCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0

	basePenalty := 5.0
	if migrationCount > 10 {
		basePenalty = 3.0
	}
	if migrationCount > 50 {
		basePenalty = 2.0
	}
	if migrationCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case "error":
			score -= float64(check.IssueCount) * basePenalty * 2
		case "warn":
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return int(score)
}

// generateRecommendations creates actionable recommendations from findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	seen := make(map[string]bool)

	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}
		rec := getRecommendation(check.RuleID)
		if rec != "" && !seen[rec] {
			recommendations = append(recommendations, rec)
			seen[rec] = true
		}
	}

	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}

	return recommendations
}

func getRecommendation(ruleID string) string {
	switch ruleID {
	case "CF01":
		return `Run "mallard init" to create a config file`
	case "ST01":
		return "Make the state directory writable or point state_path elsewhere"
	case "TG01":
		return "Fix connection settings for unreachable targets"
	case "TG02":
		return "Remove or correct unloadable extensions in target params"
	case "MG01":
		return "Create the migrations directory or adjust migrations_dir"
	case "MG02":
		return `Run "mallard migrate up" to apply pending migrations`
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("Mallard Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Summary"))
	r.Printf("   Targets: %d | Migrations: %d | Seeds: %d\n", out.Summary.Targets, out.Summary.Migrations, out.Summary.Seeds)
	r.Printf("   Applied: %d | Pending: %d\n", out.Summary.Applied, out.Summary.Pending)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.String()
		switch check.Status {
		case "warn":
			icon = styles.Warning.Render("!")
		case "error":
			icon = styles.StatusFailed.String()
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		// Show first 3 details per check
		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# Mallard Health Report")
	r.Println("")

	r.Println("## Summary")
	r.Println("")
	r.Printf("- **Targets**: %d\n", out.Summary.Targets)
	r.Printf("- **Migrations**: %d (%d applied, %d pending)\n", out.Summary.Migrations, out.Summary.Applied, out.Summary.Pending)
	r.Printf("- **Seeds**: %d\n", out.Summary.Seeds)
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		status := "PASS"
		switch check.Status {
		case "warn":
			status = "WARN"
		case "error":
			status = "ERROR"
		}

		r.Printf("- **[%s]** %s: %s", status, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}
