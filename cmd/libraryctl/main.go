// Command libraryctl administers a score library directly against its stores.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	userFlag := &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "User id to act as",
		Required: true,
	}
	folderFlag := &cli.StringFlag{
		Name:    "folder",
		Aliases: []string{"f"},
		Usage:   "Folder id (omit for the library root)",
	}

	app := &cli.App{
		Name:  "libraryctl",
		Usage: "Inspect and maintain a score library",
		Commands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "Create a demo library for a user",
				Flags: []cli.Flag{
					userFlag,
					&cli.StringFlag{
						Name:  "email",
						Usage: "Email recorded on the user's profile",
						Value: "demo@example.com",
					},
					&cli.StringSliceFlag{
						Name:  "collaborator",
						Usage: "Email to invite to the demo share as an editor (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "create-accounts",
						Usage: "Create missing collaborator accounts in the identity provider",
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password for accounts created with --create-accounts",
						Value: "scorelib-demo",
					},
				},
				Action: seed,
			},
			{
				Name:   "tree",
				Usage:  "Print one level of a user's library",
				Flags:  []cli.Flag{userFlag, folderFlag},
				Action: printTree,
			},
			{
				Name:  "delete-folder",
				Usage: "Recursively delete a folder and report paths that could not be removed",
				Flags: []cli.Flag{
					userFlag,
					&cli.StringFlag{
						Name:     "folder",
						Aliases:  []string{"f"},
						Usage:    "Folder id",
						Required: true,
					},
				},
				Action: deleteFolder,
			},
			{
				Name:  "usage",
				Usage: "Print a user's practice calendar and streak",
				Flags: []cli.Flag{
					userFlag,
					&cli.IntFlag{
						Name:  "year",
						Usage: "Calendar year",
						Value: time.Now().Year(),
					},
					&cli.IntFlag{
						Name:  "month",
						Usage: "Calendar month (1-12)",
						Value: int(time.Now().Month()),
					},
				},
				Action: printUsage,
			},
			{
				Name:  "delete-account",
				Usage: "Remove an account from the identity provider",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Account email",
						Required: true,
					},
				},
				Action: deleteAccount,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
