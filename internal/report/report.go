// Package report renders command results for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"k8s.io/apimachinery/pkg/util/sets"

	"tasnim.dev/aws-sweep/internal/aws/efs"
	"tasnim.dev/aws-sweep/internal/aws/iam"
	"tasnim.dev/aws-sweep/internal/aws/vpc"
	"tasnim.dev/aws-sweep/internal/cleanup"
	"tasnim.dev/aws-sweep/internal/fetch"
)

// bodyPreview caps how much of a response body is shown per row.
const bodyPreview = 60

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(MutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		})
}

func write(w io.Writer, title string, body string) error {
	_, err := lipgloss.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), body))
	return err
}

// Outcomes renders one row per delete outcome followed by a status summary.
func Outcomes(w io.Writer, title string, outcomes []cleanup.Outcome) error {
	if len(outcomes) == 0 {
		return write(w, title, MutedStyle.Render("nothing to delete"))
	}
	t := newTable("ID", "STATUS", "ERROR")
	for _, o := range outcomes {
		msg := ""
		if o.Err != nil {
			msg = ErrorStyle.Render(o.Err.Error())
		}
		t.Row(o.ID, RenderStatus(string(o.Status)), msg)
	}

	counts := cleanup.Count(outcomes)
	summary := SummaryStyle.Render(fmt.Sprintf("deleted %d  already gone %d  skipped %d  failed %d",
		counts[cleanup.StatusDeleted],
		counts[cleanup.StatusAlreadyGone],
		counts[cleanup.StatusSkipped],
		counts[cleanup.StatusFailed],
	))
	return write(w, title, lipgloss.JoinVertical(lipgloss.Left, t.String(), summary))
}

// IDs renders a sorted id set, one per line.
func IDs(w io.Writer, title string, ids sets.Set[string]) error {
	if ids.Len() == 0 {
		return write(w, title, MutedStyle.Render("none"))
	}
	return write(w, fmt.Sprintf("%s (%d)", title, ids.Len()), strings.Join(sets.List(ids), "\n"))
}

// SecurityGroups renders groups and marks the ones in orphans.
func SecurityGroups(w io.Writer, title string, groups []vpc.SecurityGroupInfo, orphans sets.Set[string]) error {
	t := newTable("GROUP ID", "VPC", "NAME", "ORPHAN", "DESCRIPTION")
	for _, sg := range groups {
		orphan := ""
		if orphans.Has(sg.GroupID) {
			orphan = RenderStatus("orphan")
		}
		t.Row(sg.GroupID, sg.VPCID, sg.Name, orphan, sg.Description)
	}
	return write(w, title, t.String())
}

// FetchResults renders one row per fetched URL in request order.
func FetchResults(w io.Writer, results []fetch.Result) error {
	t := newTable("URL", "RESULT", "STATUS", "BODY")
	for _, r := range results {
		status := ""
		if r.StatusCode != 0 {
			status = strconv.Itoa(r.StatusCode)
		}
		body := preview(r.Body)
		if r.Err != nil {
			body = ErrorStyle.Render(r.Err.Error())
		}
		t.Row(r.URL, RenderStatus(string(r.Kind)), status, body)
	}
	return write(w, fmt.Sprintf("Fetched %d URLs", len(results)), t.String())
}

// FileSystems renders file systems selected for pruning.
func FileSystems(w io.Writer, title string, fileSystems []efs.FileSystemInfo) error {
	if len(fileSystems) == 0 {
		return write(w, title, MutedStyle.Render("none"))
	}
	t := newTable("FILE SYSTEM ID", "NAME", "CREATION TOKEN", "STATE")
	for _, f := range fileSystems {
		t.Row(f.FileSystemID, f.Name, f.CreationToken, RenderStatus(f.State))
	}
	return write(w, title, t.String())
}

// Policies renders customer-managed IAM policies.
func Policies(w io.Writer, title string, policies []iam.IAMPolicy) error {
	if len(policies) == 0 {
		return write(w, title, MutedStyle.Render("none"))
	}
	t := newTable("NAME", "ARN", "ATTACHMENTS", "UPDATED")
	for _, p := range policies {
		updated := ""
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.Format("2006-01-02")
		}
		t.Row(p.Name, p.ARN, strconv.Itoa(p.AttachmentCount), updated)
	}
	return write(w, title, t.String())
}

func preview(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	if len(body) <= bodyPreview {
		return body
	}
	return body[:bodyPreview-3] + "..."
}
