package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/waterlens/internal/analysis"
)

// View implements tea.Model.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.showDebug {
		overlay := debugOverlay(a.cfg.Ring, a.width, a.height-1)
		return lipgloss.JoinVertical(lipgloss.Left, overlay, debugStatusBar(a.width))
	}

	var body string
	switch a.session.State {
	case analysis.StateProcessing:
		body = a.renderProcessing()
	case analysis.StateCompleted:
		body = a.renderCompleted()
	case analysis.StateError:
		body = a.renderError()
	default:
		body = a.renderUpload()
	}

	return lipgloss.JoinVertical(lipgloss.Left, Panel.Render(body), a.renderStatusBar())
}

func (a App) renderUpload() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Water Test Analysis"))
	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render("Select a PDF with your water test results to get a complete analysis."))
	b.WriteString("\n\n")
	b.WriteString(a.input.View())
	b.WriteString("\n")

	if a.session.Err != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("✗ " + a.session.Err))
		b.WriteString("\n")
	}

	if f := a.session.SelectedFile; f != nil {
		b.WriteString("\n")
		b.WriteString(StepDoneStyle.Render("✓ "))
		fmt.Fprintf(&b, "%s (%s)\n", f.Name(), analysis.FormatSize(f.Size))
		b.WriteString(SubtleStyle.Render("Press enter to analyze. PDF only, up to 10 MB."))
	} else {
		b.WriteString("\n")
		b.WriteString(SubtleStyle.Render("PDF only, up to 10 MB."))
	}
	return b.String()
}

func (a App) renderProcessing() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Analyzing test results"))
	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render(a.session.FileName()))
	b.WriteString("\n")

	elapsed := a.cfg.Now().Sub(a.started).Seconds()
	if w := a.session.Workflow; w != nil && w.ElapsedTime > 0 {
		elapsed = w.ElapsedTime
	}
	if elapsed > 0 {
		fmt.Fprintf(&b, "Time: %s\n", analysis.FormatElapsed(elapsed))
	}
	b.WriteString("\n")

	states := analysis.StepStatuses(a.session.Workflow)
	for i, info := range analysis.StepInfos {
		b.WriteString(a.renderStep(info, states[i]))
		b.WriteString("\n")
		if states[i] == analysis.StepActive && a.session.Workflow != nil && a.session.Workflow.Message != "" {
			b.WriteString("    ")
			b.WriteString(ActiveMessage.Render(a.session.Workflow.Message))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	var progress float64
	if w := a.session.Workflow; w != nil {
		progress = w.ClampedProgress()
	}
	b.WriteString(a.progress.ViewAs(progress))
	return b.String()
}

func (a App) renderStep(info analysis.StepInfo, st analysis.StepState) string {
	var icon, label string
	switch st {
	case analysis.StepDone:
		icon, label = StepDoneStyle.Render("✓"), StepDoneStyle.Render(info.Label)
	case analysis.StepActive:
		icon, label = a.spinner.View(), StepActiveStyle.Render(info.Label)
	case analysis.StepFailed:
		icon, label = StepFailedStyle.Render("✗"), StepFailedStyle.Render(info.Label)
	default:
		icon, label = StepPendingStyle.Render("·"), StepPendingStyle.Render(info.Label)
	}
	return fmt.Sprintf(" %s %s  %s", icon, label, StepDescription.Render(info.Description))
}

func (a App) renderCompleted() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Analysis complete"))
	b.WriteString("\n")

	if res := a.session.Result; res != nil {
		name := res.OriginalFilename
		if name == "" {
			name = a.session.FileName()
		}
		fmt.Fprintf(&b, "File: %s\n", name)
		if !res.AnalysisDate.IsZero() {
			fmt.Fprintf(&b, "Date: %s\n", res.AnalysisDate.Local().Format(time.DateTime))
		}
		fmt.Fprintf(&b, "Processing time: %s\n", analysis.FormatElapsed(res.ProcessingTime))
	}
	b.WriteString("\n")
	b.WriteString(a.report.View())

	if a.notice != "" {
		b.WriteString("\n")
		if a.noticeErr {
			b.WriteString(ErrorStyle.Render(a.notice))
		} else {
			b.WriteString(NoticeStyle.Render(a.notice))
		}
	}
	return b.String()
}

func (a App) renderError() string {
	msg := a.session.Err
	if msg == "" {
		msg = "Unknown error during analysis"
	}
	var b strings.Builder
	b.WriteString(ErrorStyle.Render("An error occurred"))
	b.WriteString("\n\n")
	b.WriteString(msg)
	b.WriteString("\n\n")
	b.WriteString(SubtleStyle.Render("Press r to try again."))
	return b.String()
}

func (a App) renderStatusBar() string {
	var pairs [][2]string
	switch a.session.State {
	case analysis.StateUpload:
		if a.input.Focused() {
			pairs = append(pairs, [2]string{"enter", "select"})
			if a.session.SelectedFile != nil {
				pairs = append(pairs, [2]string{"esc", "back"})
			}
		} else {
			pairs = append(pairs, [2]string{"enter/a", "analyze"}, [2]string{"x", "remove"}, [2]string{"e", "edit"})
		}
	case analysis.StateCompleted:
		pairs = append(pairs, [2]string{"d", "download PDF"}, [2]string{"p", "preview"}, [2]string{"n", "new analysis"})
	case analysis.StateError:
		pairs = append(pairs, [2]string{"r", "try again"})
	}
	if !a.input.Focused() || a.session.State != analysis.StateUpload {
		pairs = append(pairs, [2]string{"D", "diagnostics"}, [2]string{"q", "quit"})
	} else {
		pairs = append(pairs, [2]string{"ctrl+c", "quit"})
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, StatusBarKey.Render(p[0])+StatusBarText.Render(":"+p[1]))
	}
	line := "  " + strings.Join(parts, "  ")

	if a.malformed > 0 && a.session.State != analysis.StateUpload {
		line += "  " + WarnStyle.Render(fmt.Sprintf("⚠ %d malformed frames skipped", a.malformed))
	}
	return StatusBar.Width(a.width).Render(line)
}
