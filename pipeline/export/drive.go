package export

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// driveSharer grants a newly created spreadsheet writer access to a
// configured principal, the Go equivalent of gspread's Spreadsheet.share.
type driveSharer struct {
	service *drive.Service
}

func newDriveSharer(ctx context.Context, e *SpreadsheetExporter) (*driveSharer, error) {
	raw, err := base64.StdEncoding.DecodeString(e.CredentialsB64)
	if err != nil {
		return nil, fmt.Errorf("decode service account credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("build drive client: %w", err)
	}
	return &driveSharer{service: svc}, nil
}

func (d *driveSharer) share(fileID, email string) error {
	_, err := d.service.Permissions.Create(fileID, &drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: email,
	}).SendNotificationEmail(false).Do()
	return err
}
