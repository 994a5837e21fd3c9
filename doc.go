// Package blobxfer copies large objects from a streaming source store into a
// create-only destination store that supports server-side compose.
//
// The source object is never materialised in memory or on disk. It is read as
// a stream of bounded chunks; each chunk is uploaded as an immutable fragment
// and fragments are folded into the destination object with compose calls of
// at most BatchThreshold inputs (32 for Google Cloud Storage). The destination
// object only appears on the final compose.
//
// Key features:
//   - Pluggable sources (Azure Blob Storage, S3, MinIO, local files)
//   - Pluggable destinations (Google Cloud Storage, MinIO)
//   - Exponential backoff on rate-limited uploads and composes
//   - Optional bounded-concurrency uploads with strict ordering
//   - Structured logging, progress tracking and Prometheus metrics
//
// Example usage:
//
//	src, err := azure.NewFromConnectionString(os.Getenv("AzureWebJobsStorage"))
//	if err != nil {
//	    return err
//	}
//	dst, err := gcs.New(ctx, gcs.WithCredentialsJSON(creds), gcs.WithProjectID(project))
//	if err != nil {
//	    return err
//	}
//	defer dst.Close()
//
//	client, err := blobxfer.New(src, dst, blobxfer.WithConcurrency(4))
//	if err != nil {
//	    return err
//	}
//
//	resp, err := client.Run(ctx, blobxfer.Request{
//	    AzureContainerName: "exports",
//	    AzureBlobName:      "2024/report.csv",
//	    GCPProjectID:       project,
//	    GCPBucketName:      "landing",
//	    GCPBlobName:        "data/2024/report.csv",
//	})
package blobxfer
