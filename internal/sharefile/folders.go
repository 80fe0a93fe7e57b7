package sharefile

import (
	"context"
	"net/url"
)

const (
	endpointFolder = "folder"
	folderHome     = "home"
	folderShared   = "allshared"
)

// ListFolder lists the contents of a folder. id may be a folder id or one of
// the server aliases such as "home" and "allshared".
func (c *Client) ListFolder(ctx context.Context, id string) (*Envelope, error) {
	return c.legacyCall(ctx, legacyRequest{
		Endpoint: endpointFolder,
		Op:       "list",
		Params:   url.Values{"id": {id}},
	})
}

// SharedFolders lists every shared folder of the account.
func (c *Client) SharedFolders(ctx context.Context) (*Envelope, error) {
	return c.ListFolder(ctx, folderShared)
}

// DeleteFolder deletes a folder by id.
func (c *Client) DeleteFolder(ctx context.Context, id string) (*Envelope, error) {
	return c.legacyCall(ctx, legacyRequest{
		Endpoint: endpointFolder,
		Op:       "delete",
		Params:   url.Values{"id": {id}},
	})
}

// Folders decodes a folder/list envelope.
func Folders(env *Envelope) ([]Folder, error) {
	var folders []Folder
	if err := env.Decode(&folders); err != nil {
		return nil, err
	}

	return folders, nil
}
