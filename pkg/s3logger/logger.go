package s3logger

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	awsclients "github.com/boogy/aws-cognito-warden/pkg/aws"
	"github.com/boogy/aws-cognito-warden/pkg/config"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout is the default timeout for S3 operations
	DefaultTimeout = 10 * time.Second

	// DefaultBatchSize is the default number of log lines to batch before writing to S3
	DefaultBatchSize = 50

	// DefaultMaxBatchAge is the default maximum time to wait before writing a batch
	DefaultMaxBatchAge = 30 * time.Second

	// DefaultMaxBufferedLines caps the lines held in memory while uploads lag or fail
	DefaultMaxBufferedLines = 1000

	source = "aws-cognito-warden"
)

// ErrClientNotInitialized is returned when an upload is attempted without an S3 client
var ErrClientNotInitialized = errors.New("S3 client not initialized")

// Options holds the batching and key layout settings of the S3 logger
type Options struct {
	Bucket string
	Prefix string

	Timeout          time.Duration
	BatchSize        int
	MaxBatchAge      time.Duration
	MaxBufferedLines int

	IncludeUUID   bool
	FileExtension string
	ExtraTags     map[string]string
}

// Option configures an S3Logger
type Option func(*S3Logger)

// WithBatchSize sets the number of log lines to batch before writing to S3
func WithBatchSize(size int) Option {
	return func(l *S3Logger) {
		if size > 0 {
			l.opts.BatchSize = size
		}
	}
}

// WithMaxBufferedLines caps the batch. The oldest lines are dropped beyond it.
func WithMaxBufferedLines(n int) Option {
	return func(l *S3Logger) {
		if n > 0 {
			l.opts.MaxBufferedLines = n
		}
	}
}

// WithMaxBatchAge sets the maximum time to wait before writing a batch
func WithMaxBatchAge(age time.Duration) Option {
	return func(l *S3Logger) { l.opts.MaxBatchAge = age }
}

// WithIncludeUUID controls whether a random UUID prefixes the object name
func WithIncludeUUID(include bool) Option {
	return func(l *S3Logger) { l.opts.IncludeUUID = include }
}

// WithFileExtension sets the extension of uploaded objects
func WithFileExtension(ext string) Option {
	return func(l *S3Logger) { l.opts.FileExtension = ext }
}

// WithExtraTag adds an extra tag to uploaded objects
func WithExtraTag(key, value string) Option {
	return func(l *S3Logger) {
		if l.opts.ExtraTags == nil {
			l.opts.ExtraTags = make(map[string]string)
		}
		l.opts.ExtraTags[key] = value
	}
}

// WithClock overrides the time source used for object keys and metadata
func WithClock(now func() time.Time) Option {
	return func(l *S3Logger) { l.timeNow = now }
}

// S3Logger is an io.Writer that batches log lines and ships them to S3 as gzip objects.
// Uploads run on a background goroutine so Write never waits on S3. A batch whose
// upload fails is discarded, and the buffer never holds more than MaxBufferedLines.
// A logger without a client, or created with logging disabled, discards everything.
type S3Logger struct {
	client  awsclients.S3API
	enabled bool
	opts    Options
	timeNow func() time.Time

	mu     sync.Mutex
	batch  [][]byte
	closed bool

	uploadMu sync.Mutex
	dropped  atomic.Int64

	flushCh chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewS3Logger creates a logger shipping to cfg.LogBucket under cfg.LogPrefix.
// The upload goroutine only runs when logging to S3 is enabled and a client is given.
func NewS3Logger(cfg *config.Config, client awsclients.S3API, opts ...Option) *S3Logger {
	ctx, cancel := context.WithCancel(context.Background())

	l := &S3Logger{
		client:  client,
		enabled: cfg.LogToS3 && cfg.LogBucket != "",
		timeNow: time.Now,
		flushCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		opts: Options{
			Bucket:           cfg.LogBucket,
			Prefix:           cfg.LogPrefix,
			Timeout:          DefaultTimeout,
			BatchSize:        DefaultBatchSize,
			MaxBatchAge:      DefaultMaxBatchAge,
			MaxBufferedLines: DefaultMaxBufferedLines,
			IncludeUUID:      true,
			FileExtension:    ".json.gz",
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.opts.MaxBufferedLines < l.opts.BatchSize {
		l.opts.MaxBufferedLines = l.opts.BatchSize
	}

	if l.Enabled() {
		l.wg.Add(1)
		go l.run()
	}
	return l
}

// Enabled reports whether writes are shipped to S3
func (l *S3Logger) Enabled() bool {
	return l.enabled && l.client != nil
}

// Dropped returns how many log lines were discarded, either because the buffer
// overflowed or because their upload failed
func (l *S3Logger) Dropped() int64 {
	return l.dropped.Load()
}

// run uploads a batch when Write reports it full or when MaxBatchAge elapses
func (l *S3Logger) run() {
	defer l.wg.Done()

	var tick <-chan time.Time
	if l.opts.MaxBatchAge > 0 {
		ticker := time.NewTicker(l.opts.MaxBatchAge)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-l.done:
			return
		case <-l.flushCh:
			if !l.full() {
				continue
			}
		case <-tick:
		}
		if err := l.Flush(); err != nil {
			// slog would write back into this logger
			fmt.Fprintf(os.Stderr, "s3logger: %v\n", err)
		}
	}
}

func (l *S3Logger) full() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.batch) >= l.opts.BatchSize
}

// Write appends p to the current batch and wakes the uploader once the batch is full.
// It always reports len(p) so a failing upload never breaks the local log stream.
func (l *S3Logger) Write(p []byte) (int, error) {
	if !l.Enabled() || len(p) == 0 {
		return len(p), nil
	}

	line := make([]byte, len(p))
	copy(line, p)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return len(p), nil
	}
	l.batch = append(l.batch, line)
	if over := len(l.batch) - l.opts.MaxBufferedLines; over > 0 {
		l.batch = append(l.batch[:0], l.batch[over:]...)
		l.dropped.Add(int64(over))
	}
	full := len(l.batch) >= l.opts.BatchSize
	l.mu.Unlock()

	if full {
		select {
		case l.flushCh <- struct{}{}:
		default:
		}
	}
	return len(p), nil
}

// Flush uploads all pending log lines. On failure those lines are discarded
// and counted in Dropped.
func (l *S3Logger) Flush() error {
	if !l.Enabled() {
		return nil
	}

	l.uploadMu.Lock()
	defer l.uploadMu.Unlock()

	l.mu.Lock()
	batch := l.batch
	l.batch = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := l.upload(batch); err != nil {
		l.dropped.Add(int64(len(batch)))
		return fmt.Errorf("dropped %d log lines: %w", len(batch), err)
	}
	return nil
}

// upload compresses batch into a single object
func (l *S3Logger) upload(batch [][]byte) error {
	var buf bytes.Buffer
	for _, line := range batch {
		buf.Write(line)
		if !bytes.HasSuffix(line, []byte("\n")) {
			buf.WriteByte('\n')
		}
	}

	compressed, err := compressGzip(buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to compress log data: %w", err)
	}

	return l.WriteObject(l.generateS3Key(), compressed)
}

// generateS3Key builds prefix/yyyy/mm/dd/[uuid-]yyyymmdd-hhmmss<ext>
func (l *S3Logger) generateS3Key() string {
	now := l.timeNow().UTC()

	var parts []string
	if prefix := strings.Trim(l.opts.Prefix, "/"); prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, now.Format("2006/01/02"))

	filename := now.Format("20060102-150405")
	if l.opts.IncludeUUID {
		filename = uuid.New().String() + "-" + filename
	}

	parts = append(parts, filename+l.opts.FileExtension)
	return strings.Join(parts, "/")
}

// WriteObject uploads an already compressed log object
func (l *S3Logger) WriteObject(key string, body []byte) error {
	if l.client == nil {
		return ErrClientNotInitialized
	}

	ctx, cancel := context.WithTimeout(l.ctx, l.opts.Timeout)
	defer cancel()

	metadata := map[string]string{
		"source":     source,
		"created-at": l.timeNow().UTC().Format(time.RFC3339),
	}
	maps.Copy(metadata, l.opts.ExtraTags)

	_, err := l.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(l.opts.Bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(body),
		ContentType:       aws.String("application/json"),
		ContentEncoding:   aws.String("gzip"),
		ChecksumAlgorithm: s3types.ChecksumAlgorithmSha256,
		Tagging:           aws.String(encodeTags(metadata)),
		Metadata:          metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to write logs to S3 (bucket %s, key %s): %w", l.opts.Bucket, key, err)
	}

	return nil
}

// Close stops the uploader and flushes any remaining logs. Later writes are discarded.
func (l *S3Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	close(l.done)
	l.wg.Wait()

	err := l.Flush()
	l.cancel()
	return err
}

// encodeTags renders tags as a sorted URL query string
func encodeTags(tags map[string]string) string {
	values := url.Values{}
	for k, v := range tags {
		values.Set(k, v)
	}
	return values.Encode()
}

func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)

	if _, err := gzWriter.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write to gzip writer: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}
