package feishu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/feishudocs/feishu.go/pkg/constants"
)

// GetRootFolderMeta returns the credential's root Drive folder, the default
// parent for new documents and folders.
func (c *Client) GetRootFolderMeta(ctx context.Context) (*FolderMeta, error) {
	var meta FolderMeta
	if err := c.do(ctx, http.MethodGet, "/drive/explorer/v2/root_folder/meta", nil, nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

type driveFilePage struct {
	Files         []DriveFile `json:"files"`
	NextPageToken string      `json:"next_page_token"`
	HasMore       bool        `json:"has_more"`
}

// ListFolderChildren returns every file and folder directly inside
// folderToken.
func (c *Client) ListFolderChildren(ctx context.Context, folderToken string) ([]DriveFile, error) {
	var all []DriveFile
	pageToken := ""

	for range constants.MaxPageIterations {
		q := url.Values{}
		q.Set("folder_token", folderToken)
		q.Set("page_size", strconv.Itoa(constants.MaxPageSize))
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var page driveFilePage
		if err := c.do(ctx, http.MethodGet, "/drive/v1/files", q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Files...)

		if !page.HasMore || page.NextPageToken == "" {
			return all, nil
		}
		if page.NextPageToken == pageToken {
			return nil, constants.ErrPageLoop
		}
		pageToken = page.NextPageToken
	}
	return nil, constants.ErrPageLoop
}

// CreateFolder creates a folder under parentToken and returns its token.
func (c *Client) CreateFolder(ctx context.Context, name, parentToken string) (string, error) {
	body := map[string]string{
		"name":         name,
		"folder_token": parentToken,
	}

	var data struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/drive/v1/files/create_folder", nil, body, &data); err != nil {
		return "", err
	}
	return data.Token, nil
}

// UploadImage uploads image bytes destined for an image block inside the
// given document and returns the media token to reference from the block.
func (c *Client) UploadImage(ctx context.Context, documentID, filename string, content io.Reader, size int64) (string, error) {
	return c.uploadMedia(ctx, filename, "docx_image", documentID, content, size)
}

// UploadMedia uploads file bytes attached to a document and returns the media
// token.
func (c *Client) UploadMedia(ctx context.Context, documentID, filename string, content io.Reader, size int64) (string, error) {
	return c.uploadMedia(ctx, filename, "docx_file", documentID, content, size)
}

func (c *Client) uploadMedia(ctx context.Context, filename, parentType, parentNode string, content io.Reader, size int64) (string, error) {
	if filename == "" {
		return "", &ValidationError{Msg: "upload filename is empty"}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"file_name":   filename,
		"parent_type": parentType,
		"parent_node": parentNode,
		"size":        fmt.Sprintf("%d", size),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", errors.Wrap(err, "write upload field")
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", errors.Wrap(err, "create upload part")
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", errors.Wrap(err, "read upload content")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "finalize upload body")
	}

	var data struct {
		FileToken string `json:"file_token"`
	}
	err = c.doRaw(ctx, http.MethodPost, "/drive/v1/medias/upload_all", nil, w.FormDataContentType(), buf.Bytes(), &data)
	if err != nil {
		return "", err
	}
	return data.FileToken, nil
}
