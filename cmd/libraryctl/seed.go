package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	models "scorelib/internal/domain/models/library"
	libsvc "scorelib/internal/domain/services/library"
)

// Minimal placeholder bodies; the registry only checks names and MIME types.
const (
	demoPDF      = "%PDF-1.4\n1 0 obj <<>> endobj\ntrailer <<>>\n%%EOF\n"
	demoMusicXML = `<?xml version="1.0" encoding="UTF-8"?><score-partwise version="4.0"><part-list/></score-partwise>`
)

type demoFile struct {
	name, contentType, body string
}

type demoFolder struct {
	name  string
	files []demoFile
}

var demoLibrary = []demoFolder{
	{name: "Bach", files: []demoFile{
		{"Prelude in C.pdf", "application/pdf", demoPDF},
		{"Invention No. 8.musicxml", "application/vnd.recordare.musicxml+xml", demoMusicXML},
	}},
	{name: "Chopin", files: []demoFile{
		{"Nocturne Op. 9 No. 2.pdf", "application/pdf", demoPDF},
	}},
}

func seed(c *cli.Context) error {
	ctx := c.Context
	userID := c.String("user")

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.dir.SaveProfile(ctx, &models.UserProfile{ID: userID, Email: c.String("email")}); err != nil {
		return err
	}

	for _, df := range demoLibrary {
		folder, err := e.folders.CreateFolder(ctx, &libsvc.CreateFolderRequest{UserID: userID, Name: df.name})
		if err != nil {
			return fmt.Errorf("create %s: %w", df.name, err)
		}
		for _, f := range df.files {
			if err := uploadDemo(ctx, e, userID, &folder.ID, f); err != nil {
				return err
			}
		}
		fmt.Fprintf(c.App.Writer, "folder %s (%s)\n", folder.Name, folder.ID)
	}

	rec, err := e.files.UploadFile(ctx, &libsvc.UploadFileRequest{
		UserID:      userID,
		FileName:    "Scales.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(demoPDF)),
		Content:     strings.NewReader(demoPDF),
	})
	if err != nil {
		return fmt.Errorf("upload Scales.pdf: %w", err)
	}
	if err := e.files.SetFlag(ctx, &libsvc.SetFlagRequest{
		UserID: userID, FileRef: libsvc.FileRef{FileID: rec.ID}, Flag: models.FlagFavorite, Value: true,
	}); err != nil {
		return err
	}

	if collaborators := c.StringSlice("collaborator"); len(collaborators) > 0 {
		if err := seedShare(c, e, userID, collaborators); err != nil {
			return err
		}
	}

	// A three-day streak ending today.
	today := time.Now().UTC()
	for i := 0; i < 3; i++ {
		if err := e.usage.LogUsage(ctx, userID, today.AddDate(0, 0, -i)); err != nil {
			return err
		}
	}

	fmt.Fprintln(c.App.Writer, "seeded library for", userID)
	return nil
}

func seedShare(c *cli.Context, e *env, userID string, emails []string) error {
	ctx := c.Context

	if c.Bool("create-accounts") {
		if e.admin == nil {
			return fmt.Errorf("--create-accounts needs AUTH_ADMIN_URL")
		}
		for _, email := range emails {
			id, err := e.admin.EnsureUser(ctx, email, c.String("password"))
			if err != nil {
				return fmt.Errorf("ensure account %s: %w", email, err)
			}
			if err := e.dir.SaveProfile(ctx, &models.UserProfile{ID: id, Email: email}); err != nil {
				return err
			}
		}
	}

	invites := make([]libsvc.Invite, 0, len(emails))
	for _, email := range emails {
		invites = append(invites, libsvc.Invite{Email: email, Role: models.RoleEditor})
	}
	res, err := e.folders.CreateSharedFolder(ctx, &libsvc.CreateSharedFolderRequest{
		UserID:    userID,
		UserEmail: c.String("email"),
		Name:      "Ensemble",
		Invites:   invites,
	})
	if err != nil {
		return fmt.Errorf("create shared folder: %w", err)
	}
	if err := uploadDemo(ctx, e, userID, &res.Folder.ID, demoFile{"Quartet Score.pdf", "application/pdf", demoPDF}); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "shared folder %s (%s) with %d collaborators\n", res.Folder.Name, res.Folder.ID, len(res.Folder.SharedWith))
	for _, email := range res.Unresolved {
		fmt.Fprintf(c.App.Writer, "  no account for %s\n", email)
	}
	return nil
}

func uploadDemo(ctx context.Context, e *env, userID string, folderID *string, f demoFile) error {
	_, err := e.files.UploadFile(ctx, &libsvc.UploadFileRequest{
		UserID:      userID,
		FolderID:    folderID,
		FileName:    f.name,
		ContentType: f.contentType,
		Size:        int64(len(f.body)),
		Content:     strings.NewReader(f.body),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", f.name, err)
	}
	return nil
}
