package tkvseg

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"google.golang.org/api/option"
)

type ReaderAtCloser interface {
	io.Reader
	io.ReaderAt
	io.Closer
}

var (
	clientOnce sync.Once
	client     *storage.Client
	clientErr  error
	clientOpts []option.ClientOption
)

// ConfigureStorage sets the options, such as a credentials file, used when
// the Google Storage client is created. It has no effect once the client
// exists.
func ConfigureStorage(opts ...option.ClientOption) {
	clientOpts = opts
}

// StorageClient lazily creates the process-wide Google Storage client. It is
// safe for concurrent use by multiple goroutines. Local paths never need it.
func StorageClient() (*storage.Client, error) {
	clientOnce.Do(func() {
		client, clientErr = storage.NewClient(context.Background(), clientOpts...)
	})

	return client, clientErr
}

// IsGoogleStoragePath reports whether path points at a gs:// object.
func IsGoogleStoragePath(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// Open is MaybeOpenFromGoogleStorage with the shared client, created only if
// path is a gs:// path.
func Open(path string) (ReaderAtCloser, int64, error) {
	if !IsGoogleStoragePath(path) {
		return MaybeOpenFromGoogleStorage(path, nil)
	}

	c, err := StorageClient()
	if err != nil {
		return nil, 0, pfx.Err(err)
	}

	return MaybeOpenFromGoogleStorage(path, c)
}

// MaybeOpenFromGoogleStorage opens a local file, or a Google Storage object if
// path begins with gs://, and reports its size.
func MaybeOpenFromGoogleStorage(path string, client *storage.Client) (ReaderAtCloser, int64, error) {
	if IsGoogleStoragePath(path) {
		if client == nil {
			return nil, 0, fmt.Errorf("%s: a Google Storage client is required", path)
		}

		// Detect the bucket and the path to the actual file
		pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
		if len(pathParts) != 2 {
			return nil, 0, fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
		}
		bucketName := pathParts[0]
		pathName := pathParts[1]

		handle := client.Bucket(bucketName).Object(pathName)

		wrappedHandle := &GSReaderAtCloser{
			ObjectHandle: handle,
			Context:      context.Background(),
		}

		// Make a hard call to get the filesize
		attrs, err := wrappedHandle.ObjectHandle.Attrs(wrappedHandle.Context)
		if err != nil {
			return nil, 0, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return wrappedHandle, attrs.Size, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	fstat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, fstat.Size(), nil
}

// ReadAll reads the whole file or object at path.
func ReadAll(path string) ([]byte, error) {
	f, _, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// Decorates a Google Storage object handle with ReadAt
type GSReaderAtCloser struct {
	*storage.ObjectHandle
	Context context.Context
	Reader  *storage.Reader
}

func (o *GSReaderAtCloser) Read(p []byte) (n int, err error) {
	if o.Reader == nil {
		o.Reader, err = o.NewReader(o.Context)
		if err != nil {
			return 0, err
		}
	}

	return o.Reader.Read(p)
}

// ReadAt satisfies io.ReaderAt. Note that this is dependent upon making p a
// buffer of the desired length to be read by NewRangeReader.
func (o *GSReaderAtCloser) ReadAt(p []byte, offset int64) (n int, err error) {
	rdr, err := o.NewRangeReader(o.Context, offset, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rdr.Close()

	return io.ReadFull(rdr, p)
}

// Close releases the sequential reader, if one was opened.
func (o *GSReaderAtCloser) Close() error {
	if o.Reader == nil {
		return nil
	}

	err := o.Reader.Close()
	o.Reader = nil
	return err
}
