package sharefile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

const (
	endpointFile     = "file"
	octetStreamType  = "application/octet-stream"
	rawUploadParam   = "raw"
	filenameParam    = "filename"
	folderIDParam    = "folderid"
	rawUploadEnabled = "1"
)

// UploadURL requests a one-time upload ticket for name in folderID.
func (c *Client) UploadURL(ctx context.Context, folderID, name string) (string, error) {
	env, err := c.legacyCall(ctx, legacyRequest{
		Endpoint: endpointFile,
		Op:       "upload",
		Params: url.Values{
			filenameParam: {name},
			folderIDParam: {folderID},
		},
	})
	if err != nil {
		return "", err
	}

	if err := env.Err(endpointFile, "upload"); err != nil {
		return "", err
	}

	var ticket string
	if err := env.Decode(&ticket); err != nil {
		return "", err
	}

	if ticket == "" {
		return "", fmt.Errorf("sharefile: upload ticket is empty")
	}

	return ticket, nil
}

// UploadFile uploads the file at path into folderID. It fetches an upload
// ticket, then POSTs the file bytes to the ticket URL with raw=1 and the
// file's base name. The raw response body is returned.
func (c *Client) UploadFile(ctx context.Context, folderID, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sharefile: opening upload source: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("sharefile: stat upload source: %w", err)
	}

	name := norm.NFC.String(filepath.Base(path))

	ticket, err := c.UploadURL(ctx, folderID, name)
	if err != nil {
		return nil, err
	}

	target, err := uploadTarget(ticket, name)
	if err != nil {
		return nil, err
	}

	c.logger.Info("uploading file",
		slog.String("folder_id", folderID),
		slog.String("name", name),
		slog.Int64("size", info.Size()),
	)

	var body io.Reader = f
	if info.Size() == 0 {
		body = http.NoBody
	}

	req, err := c.newRequest(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, err
	}

	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", octetStreamType)

	respBody, status, err := c.send(c.transfer, req)
	if err != nil {
		return nil, fmt.Errorf("sharefile: uploading %s: %w", name, err)
	}

	if !isSuccess(status) {
		return nil, &APIError{StatusCode: status, Message: string(respBody), Err: classifyStatus(status)}
	}

	return respBody, nil
}

// UploadFileToHome uploads the file at path into the user's home folder.
func (c *Client) UploadFileToHome(ctx context.Context, path string) ([]byte, error) {
	env, err := c.ListFolder(ctx, folderHome)
	if err != nil {
		return nil, err
	}

	if err := env.Err(endpointFolder, "list"); err != nil {
		return nil, err
	}

	folders, err := Folders(env)
	if err != nil {
		return nil, err
	}

	if len(folders) == 0 || folders[0].ParentID == "" {
		return nil, ErrHomeFolderNotFound
	}

	return c.UploadFile(ctx, folders[0].ParentID, path)
}

// uploadTarget appends raw=1&filename={name} to the ticket's query string,
// keeping the ticket's own parameters.
func uploadTarget(ticket, name string) (string, error) {
	u, err := url.Parse(ticket)
	if err != nil {
		return "", fmt.Errorf("sharefile: parsing upload ticket: %w", err)
	}

	added := url.Values{
		rawUploadParam: {rawUploadEnabled},
		filenameParam:  {name},
	}.Encode()

	if u.RawQuery == "" {
		u.RawQuery = added
	} else {
		u.RawQuery += "&" + added
	}

	return u.String(), nil
}
