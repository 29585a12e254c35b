package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hoopstat/scorekeeper/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errW, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errW, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.User:
		o.printUser(v)
	case response.AuthResponse:
		o.printAuth(v)
	case response.LogoutResponse:
		o.printf("Logged out (%d sessions closed)\n", v.ClosedSessions)
	case response.GameState:
		o.printGameState(v)
	case response.Clock:
		o.printClock(v)
	case response.Permissions:
		o.printPermissions(v)
	case response.SessionList:
		o.printSessionList(v)
	case response.LocalSnapshot:
		o.printLocalSnapshot(v)
	case response.Shot:
		o.printShot(v)
	case HealthResult:
		o.printf("Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printUser(u response.User) {
	o.printf("User: %s (%s)\n", u.DisplayName, u.Username)
	o.printf("ID: %s\n", u.ID)
	o.printf("Role: %s\n", u.Role)
}

func (o *Output) printAuth(a response.AuthResponse) {
	o.printUser(a.User)
	o.printf("Token: %s\n", a.SessionToken)
	o.printf("Expires: %s\n", a.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
}

func (o *Output) printGameState(g response.GameState) {
	o.printf("Game: %s\n", g.GameID)
	o.printf("State: %s\n", g.State)
	o.printClock(g.Clock)
	o.printf("Score: %s %d - %d %s\n", g.Home.Name, g.Home.Score, g.Away.Score, g.Away.Name)

	for _, team := range []response.Team{g.Home, g.Away} {
		o.printf("\n%s (%s):\n", team.Name, team.ID)
		for _, p := range team.Players {
			marker := " "
			if p.OnCourt {
				marker = "*"
			}
			o.printf("  %s #%-3d %-20s %-12s %6s  %+d\n",
				marker, p.Number, p.Name, p.ID, formatMinutes(p.MillisOnCourt), p.PlusMinus)
		}
	}

	o.printf("\n")
	o.printPermissions(g.Permissions)
}

func (o *Output) printClock(c response.Clock) {
	period := fmt.Sprintf("Q%d", c.Quarter)
	if c.Overtime {
		period += " (OT)"
	}
	status := "stopped"
	if c.Running {
		status = "running"
	}
	o.printf("Clock: %s %s [%s]\n", period, formatSeconds(c.RemainingSeconds), status)
}

func (o *Output) printPermissions(p response.Permissions) {
	if p.IsGameCreator {
		o.printf("Creator: yes\n")
	}
	if len(p.Granted) == 0 {
		o.printf("Permissions: none\n")
		return
	}
	o.printf("Permissions: %s\n", strings.Join(p.Granted, ", "))
}

func (o *Output) printSessionList(l response.SessionList) {
	if len(l.Sessions) == 0 {
		o.printf("No open sessions\n")
		return
	}
	for _, s := range l.Sessions {
		o.printSummary(s)
	}
}

func (o *Output) printSummary(s response.SessionSummary) {
	running := ""
	if s.ClockRunning {
		running = " running"
	}
	o.printf("%s  %-12s Q%d %s%s  %d - %d\n",
		s.GameID, s.State, s.Quarter, formatSeconds(s.RemainingSeconds), running, s.HomeScore, s.AwayScore)
}

func (o *Output) printLocalSnapshot(s response.LocalSnapshot) {
	o.printSummary(s.SessionSummary)
	o.printf("Saved: %s\n", s.SavedAt.Local().Format("2006-01-02 15:04:05"))
	o.printf("Home on court: %s\n", strings.Join(s.HomeOnCourt, ", "))
	o.printf("Away on court: %s\n", strings.Join(s.AwayOnCourt, ", "))

	ids := make([]string, 0, len(s.PlayerMinutes))
	for id := range s.PlayerMinutes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		o.printf("  %-12s %6s  %+d\n", id, formatMinutes(s.PlayerMinutes[id]), s.PlusMinus[id])
	}
	o.printPermissions(s.Permissions)
}

func (o *Output) printShot(s response.Shot) {
	result := "missed"
	if s.Made {
		result = fmt.Sprintf("made (+%d)", s.Points)
	}
	o.printf("Shot: %s %s %s at %s\n", s.PlayerID, s.ShotType, result, formatSeconds(s.GameTime))
}

func formatSeconds(secs int) string {
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func formatMinutes(ms int64) string {
	return formatSeconds(int(ms / 1000))
}
