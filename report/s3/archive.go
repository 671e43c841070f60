// Package s3archive archives each closed distribution day as a JSON object in an
// S3-compatible bucket.
package s3archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	solanago "github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

type ClientConfig struct {
	Endpoint       string
	Region         string
	Bucket         string
	Prefix         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// Putter is the part of the S3 client the archiver uses.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewClient builds an S3 client. A custom endpoint selects an S3-compatible
// provider.
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3: region is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

func normaliseEndpoint(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	return "https://" + endpoint
}

// DayArchive is the object written when a day closes.
type DayArchive struct {
	Pool     solanago.PublicKey                  `json:"pool"`
	Day      uint64                              `json:"day"`
	Claim    *distribution.QuoteFeesClaimed      `json:"claim,omitempty"`
	Pages    []distribution.InvestorPayoutPage   `json:"pages"`
	Close    distribution.CreatorPayoutDayClosed `json:"close"`
	Archived time.Time                           `json:"archived_at"`
}

type dayKey struct {
	pool solanago.PublicKey
	day  uint64
}

// Archiver collects a day's claim and page events and uploads them when
// the day closes. Pages of a day cranked by another process are missing
// from its archive.
type Archiver struct {
	client Putter
	bucket string
	prefix string
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	open map[dayKey]*DayArchive
}

var _ distribution.EventSink = (*Archiver)(nil)

func NewArchiver(client Putter, bucket, prefix string, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
		open:   make(map[dayKey]*DayArchive),
	}
}

// Key is the object key of a pool's day.
func (a *Archiver) Key(pool solanago.PublicKey, day uint64) string {
	return path.Join(a.prefix, pool.String(), fmt.Sprintf("day-%08d.json", day))
}

func (a *Archiver) Emit(ctx context.Context, ev distribution.Event) {
	a.mu.Lock()
	var closed *DayArchive
	switch e := ev.(type) {
	case distribution.QuoteFeesClaimed:
		a.day(e.Pool, e.Day).Claim = &e
	case distribution.InvestorPayoutPage:
		d := a.day(e.Pool, e.Day)
		d.Pages = append(d.Pages, e)
	case distribution.CreatorPayoutDayClosed:
		k := dayKey{e.Pool, e.Day}
		closed = a.day(e.Pool, e.Day)
		closed.Close = e
		closed.Archived = a.now().UTC()
		delete(a.open, k)
	}
	a.mu.Unlock()

	if closed != nil {
		if err := a.put(ctx, closed); err != nil {
			a.logger.Error("archive day failed",
				slog.String("pool", closed.Pool.String()),
				slog.Uint64("day", closed.Day),
				slog.Any("error", err))
		}
	}
}

func (a *Archiver) day(pool solanago.PublicKey, day uint64) *DayArchive {
	k := dayKey{pool, day}
	d, ok := a.open[k]
	if !ok {
		d = &DayArchive{Pool: pool, Day: day}
		a.open[k] = d
	}
	return d
}

func (a *Archiver) put(ctx context.Context, d *DayArchive) error {
	body, err := json.Marshal(d)
	if err != nil {
		return err
	}
	key := a.Key(d.Pool, d.Day)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3: put object %s: %w", key, err)
	}
	return nil
}
