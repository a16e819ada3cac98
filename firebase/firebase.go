package firebase

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeFilename removes special characters from filenames and limits length.
func sanitizeFilename(filename string) string {
	sanitized := unsafeFilenameChars.ReplaceAllString(filename, "_")

	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}

	if sanitized == "" || sanitized == "." || sanitized == ".." {
		sanitized = "file"
	}

	return sanitized
}

var privateRanges = []*net.IPNet{
	parseCIDR("10.0.0.0/8"),
	parseCIDR("172.16.0.0/12"),
	parseCIDR("192.168.0.0/16"),
	parseCIDR("127.0.0.0/8"),
	parseCIDR("169.254.0.0/16"),
	parseCIDR("0.0.0.0/8"),
	parseCIDR("::1/128"),
	parseCIDR("fc00::/7"),
	parseCIDR("fe80::/10"),
}

// isPrivateIP checks whether an IP address is a private/reserved address.
func isPrivateIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("invalid CIDR: %s", cidr))
	}
	return network
}

// validateExternalURL rejects URLs that are not http(s) or that resolve to
// private addresses.
func validateExternalURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme '%s' is not allowed; only http and https are permitted", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URL has no hostname")
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("requests to localhost are not allowed")
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("failed to resolve hostname '%s': %w", host, err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("URL resolves to private IP address %s, which is not allowed", ip.String())
		}
	}

	return nil
}

// objectName builds "<folder>/<unix>_<rand>_<filename>" so concurrent uploads
// of the same file never collide.
func objectName(folder, filename string) string {
	return fmt.Sprintf("%s/%d_%s_%s", folder, time.Now().Unix(), uuid.NewString()[:8], sanitizeFilename(filename))
}

// Client stores objects in a Firebase Storage bucket.
type Client struct {
	bucket     *gcs.BucketHandle
	bucketName string
	http       *http.Client
	logger     *zap.Logger
}

// New initialises the Firebase app. credentials may be inline JSON, a file
// path, or empty for application default credentials.
func New(ctx context.Context, bucketName, credentials string, logger *zap.Logger) (*Client, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("FIREBASE_STORAGE_BUCKET not set")
	}

	var opts []option.ClientOption
	switch {
	case strings.HasPrefix(credentials, "{"):
		logger.Info("using firebase credentials from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
	case credentials != "":
		logger.Info("using firebase credentials from file", zap.String("path", credentials))
		opts = append(opts, option.WithCredentialsFile(credentials))
	default:
		logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using default credentials")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init failed: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("firebase bucket %s: %w", bucketName, err)
	}

	logger.Info("firebase storage initialized", zap.String("bucket", bucketName))
	return &Client{
		bucket:     bucket,
		bucketName: bucketName,
		http:       &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

func (c *Client) publicURL(objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, objectPath)
}

func (c *Client) write(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	obj := c.bucket.Object(objectPath)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	// Public read so storefront image URLs work without auth.
	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		c.logger.Warn("failed to set public ACL", zap.String("object", objectPath), zap.Error(err))
	}

	return c.publicURL(objectPath), nil
}

func (c *Client) Upload(ctx context.Context, folder string, r io.Reader, filename, contentType string) (string, error) {
	return c.write(ctx, objectName(folder, filename), r, contentType)
}

// ImportFromURL downloads an external image and stores a copy.
func (c *Client) ImportFromURL(ctx context.Context, folder, imageURL string) (string, error) {
	if err := validateExternalURL(imageURL); err != nil {
		return "", fmt.Errorf("URL validation failed for %s: %w", imageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image from %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("URL %s returned non-image content-type %q", imageURL, contentType)
	}

	name := "image"
	if parsed, err := url.Parse(imageURL); err == nil {
		if base := parsed.Path[strings.LastIndex(parsed.Path, "/")+1:]; base != "" {
			name = base
		}
	}
	return c.write(ctx, objectName(folder, name), resp.Body, contentType)
}

func (c *Client) Delete(ctx context.Context, objectPath string) error {
	if err := c.bucket.Object(objectPath).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectPath, err)
	}
	c.logger.Info("deleted file", zap.String("object", objectPath), zap.String("bucket", c.bucketName))
	return nil
}
