package azure

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/input-output-hk/blobxfer/storeapi"
)

// mapError translates Azure storage error codes into storeapi sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound):
		return fmt.Errorf("%w: %w", storeapi.ErrObjectNotFound, err)
	case bloberror.HasCode(err, bloberror.ServerBusy, bloberror.OperationTimedOut):
		return fmt.Errorf("%w: %w", storeapi.ErrRateLimited, err)
	default:
		return err
	}
}
