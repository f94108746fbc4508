package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/openworld/game/service"
	"github.com/wricardo/mcp-training/openworld/game/world"
)

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nScenario: %s\nCreated: %s\n\n%s",
		session.ID, session.ScenarioName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatWorldState(session.WorldState))
}

func formatWorldState(state *world.WorldState) string {
	if state == nil {
		return "No world state available"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("World: %s | Grid: %dx%d | Occupied cells: %d | Boarding range: %g\n",
		state.Name, state.Width, state.Height, state.OccupiedCells, state.BoardingRange))

	b.WriteString(fmt.Sprintf("\nNPCs (%d):\n", len(state.NPCs)))
	for _, n := range state.NPCs {
		where := n.Position.String()
		if n.VehicleID != "" {
			where += " riding " + n.VehicleID
		}
		b.WriteString(fmt.Sprintf("- %s [%s] %s, %s %s, mood=%s at %s\n",
			n.Name, n.ID, n.Appearance, n.Age, n.Gender, n.Mood, where))
	}

	b.WriteString(fmt.Sprintf("\nVehicles (%d):\n", len(state.Vehicles)))
	for _, v := range state.Vehicles {
		b.WriteString(fmt.Sprintf("- %s [%s] %s at %s, passengers %d/%d",
			v.Registration, v.ID, describeVehicle(&v), v.Position, len(v.Passengers), v.Capacity))
		if len(v.Capabilities) > 0 {
			tags := make([]string, len(v.Capabilities))
			for i, c := range v.Capabilities {
				tags[i] = string(c)
			}
			b.WriteString(" {" + strings.Join(tags, ",") + "}")
		}
		if v.Siren != "" {
			b.WriteString(" siren=" + v.Siren)
		}
		if v.LandingGear != "" {
			b.WriteString(" gear=" + v.LandingGear)
		}
		b.WriteString("\n")
	}

	if n := len(state.Events); n > 0 {
		b.WriteString(fmt.Sprintf("\nLast event: %s", state.Events[n-1].Message))
	}

	return b.String()
}

func describeVehicle(v *world.Vehicle) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{v.Colour, v.Make, v.Model} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "vehicle"
	}
	return strings.Join(parts, " ")
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ " + result.Message + "\n")
	} else {
		b.WriteString(fmt.Sprintf("✗ %s (code: %s)\n", result.Message, result.Code))
	}

	if m := result.Move; m != nil {
		b.WriteString(fmt.Sprintf("Move: %s %s → %s (%s)", m.OccupantID, m.From, m.To, m.Gait))
		if m.Redirected {
			b.WriteString(fmt.Sprintf(", redirected from occupied %s", m.Requested))
		}
		b.WriteString("\n")
		if len(m.Passengers) > 0 {
			b.WriteString("Passengers carried: " + strings.Join(m.Passengers, ", ") + "\n")
		}
	}

	if v := result.Vehicle; v != nil && len(v.Passengers) > 0 {
		b.WriteString(fmt.Sprintf("%s passengers: %s\n", v.Registration, strings.Join(v.Passengers, ", ")))
	}

	return b.String()
}

func formatEventLog(log *service.EventLogResponse) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Event Log (Page %d/%d) | Total: %d\n\n",
		log.Page, log.TotalPages, log.TotalEvents))

	for _, e := range log.Events {
		b.WriteString(fmt.Sprintf("#%d [%s] %s\n", e.Seq, e.Type, e.Message))
	}
	if len(log.Events) == 0 {
		b.WriteString("(no events)\n")
	}

	return b.String()
}

func formatCell(cell *world.CellInfo) string {
	if !cell.Occupied {
		return fmt.Sprintf("Cell %s is empty", cell.Position)
	}
	return fmt.Sprintf("Cell %s is occupied by %s %s [%s]",
		cell.Position, cell.OccupantKind, cell.OccupantName, cell.OccupantID)
}
