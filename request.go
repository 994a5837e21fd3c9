package blobxfer

import (
	"context"
	"strings"

	xferrors "github.com/input-output-hk/blobxfer/errors"
	"github.com/input-output-hk/blobxfer/xfertypes"
)

// Request describes one Azure blob to copy into Google Cloud Storage.
type Request struct {
	AzureContainerName string `json:"azure_container_name" yaml:"azure_container_name"`
	AzureBlobName      string `json:"azure_blob_name"      yaml:"azure_blob_name"`
	GCPProjectID       string `json:"gcp_project_id"       yaml:"gcp_project_id"`
	GCPBucketName      string `json:"gcp_bucket_name"      yaml:"gcp_bucket_name"`

	// GCPBlobName defaults to AzureBlobName
	GCPBlobName string `json:"gcp_blob_name,omitempty" yaml:"gcp_blob_name,omitempty"`
}

// Response is the completion descriptor returned to the caller.
type Response struct {
	Response string `json:"response" yaml:"response"`
}

// Validate checks that every required field is set.
func (r Request) Validate() error {
	const op = "request validation"

	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"azure_container_name", r.AzureContainerName},
		{"azure_blob_name", r.AzureBlobName},
		{"gcp_project_id", r.GCPProjectID},
		{"gcp_bucket_name", r.GCPBucketName},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return xferrors.Configuration(op, "missing required fields: "+strings.Join(missing, ", "))
	}
	return nil
}

// DestinationPath returns the GCS object path, defaulting to the Azure blob name.
func (r Request) DestinationPath() string {
	if r.GCPBlobName != "" {
		return r.GCPBlobName
	}
	return r.AzureBlobName
}

// Descriptors converts the request into source and destination descriptors.
func (r Request) Descriptors() (xfertypes.SourceDescriptor, xfertypes.DestinationDescriptor) {
	return xfertypes.SourceDescriptor{
			Store:     xfertypes.StoreAzure,
			Container: r.AzureContainerName,
			Path:      r.AzureBlobName,
		}, xfertypes.DestinationDescriptor{
			ProjectID: r.GCPProjectID,
			Bucket:    r.GCPBucketName,
			Path:      r.DestinationPath(),
		}
}

// Run validates req, performs the transfer and returns the completion message.
func (c *Client) Run(ctx context.Context, req Request, opts ...xfertypes.Option) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	src, dst := req.Descriptors()
	result, err := c.Transfer(ctx, src, dst, opts...)
	if err != nil {
		return nil, err
	}
	return &Response{Response: result.Message}, nil
}
