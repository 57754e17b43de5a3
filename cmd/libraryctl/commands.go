package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"scorelib/internal/domain"
	models "scorelib/internal/domain/models/library"
)

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func printTree(c *cli.Context) error {
	e, err := openEnv(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	snap, err := e.loader.Snapshot(c.Context, c.String("user"), optional(c.String("folder")))
	if err != nil {
		return err
	}
	writeTree(c.App.Writer, snap)
	return nil
}

func writeTree(out io.Writer, snap *models.TreeSnapshot) {
	if snap.Folder != nil {
		fmt.Fprintf(out, "%s (%s)\n", snap.Folder.Name, snap.Folder.ID)
	} else {
		fmt.Fprintln(out, "/")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, f := range snap.Folders {
		kind := "dir"
		if f.IsShared {
			kind = fmt.Sprintf("shared:%d", len(f.SharedWith))
		}
		fmt.Fprintf(tw, "  %s/\t%s\t%s\t%d files\n", f.Name, kind, f.ID, len(f.Files))
	}
	for _, f := range snap.Files {
		var marks []string
		if f.IsFavorite {
			marks = append(marks, "fav")
		}
		if f.Practiced {
			marks = append(marks, "practiced")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", f.FileName, f.FileType, f.ID, strings.Join(marks, ","))
	}
	_ = tw.Flush()
}

func deleteFolder(c *cli.Context) error {
	e, err := openEnv(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	err = e.folders.DeleteFolder(c.Context, c.String("user"), c.String("folder"))
	var partial *domain.PartialFailureError
	if errors.As(err, &partial) {
		fmt.Fprintf(c.App.Writer, "deleted with %d failures:\n", len(partial.Failures))
		for _, p := range partial.Paths() {
			fmt.Fprintf(c.App.Writer, "  %s\n", p)
		}
		return cli.Exit("", 2)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "deleted")
	return nil
}

func printUsage(c *cli.Context) error {
	month := c.Int("month")
	if month < 1 || month > 12 {
		return fmt.Errorf("month must be between 1 and 12")
	}

	e, err := openEnv(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	cal, err := e.usage.Calendar(c.Context, c.String("user"), c.Int("year"), time.Month(month), time.Now().UTC())
	if err != nil {
		return err
	}
	writeCalendar(c.App.Writer, cal)
	return nil
}

// writeCalendar prints a Sunday-first grid. Used days are starred, today is bracketed.
func writeCalendar(out io.Writer, cal *models.UsageCalendar) {
	fmt.Fprintf(out, "%s %d\n", cal.Month, cal.Year)
	fmt.Fprintln(out, " Su  Mo  Tu  We  Th  Fr  Sa")
	for i, d := range cal.Days {
		cell := "    "
		if d.Day > 0 {
			mark := " "
			if d.Used {
				mark = "*"
			}
			cell = fmt.Sprintf("%3d%s", d.Day, mark)
			if d.IsToday {
				cell = fmt.Sprintf("[%2d]", d.Day)
			}
		}
		fmt.Fprint(out, cell)
		if i%7 == 6 {
			fmt.Fprintln(out)
		}
	}
	if len(cal.Days)%7 != 0 {
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "streak: %d\n", cal.CurrentStreak)
	if cal.DailyMessage != "" {
		fmt.Fprintln(out, cal.DailyMessage)
	}
}

func deleteAccount(c *cli.Context) error {
	e, err := openEnv(c.Context)
	if err != nil {
		return err
	}
	defer e.close()

	if e.admin == nil {
		return fmt.Errorf("AUTH_ADMIN_URL is not configured")
	}
	if err := e.admin.DeleteUserByEmail(c.Context, c.String("email")); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "deleted", c.String("email"))
	return nil
}

