// Package retention decides which cached images are stale and removes them.
//
// Input is the docker images listing in "name<TAB>created-at" form, where
// created-at is docker's default rendering:
//
//	YYYY-MM-DD HH:MM:SS ±HHMM TZ [relative]
//
// Only images named <prefix>-<8 lowercase letters> are candidates, images
// created within the last hour are never removed, and of the remaining old
// images the Keep most recent survive.
package retention

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	units "github.com/docker/go-units"

	"github.com/dockpack/dockpack/internal/ui"
)

// GracePeriod is the minimum age before an image is considered for removal.
// It guarantees the image built by the invocation that is currently cleaning
// up is never pruned, even with a keep-count of zero.
const GracePeriod = time.Hour

const (
	// createdAtLayout parses the created-at field once the fixed-width
	// numeric offset has been sliced out.
	createdAtLayout = "2006-01-02 15:04:05 MST"
	// compareLayout renders timestamps for the keep/delete ordering. The
	// equal-width zero-padded fields make lexicographic order match
	// chronological order.
	compareLayout = "2006-01-02 15:04:05"
)

// TimestampError reports a listing row whose created-at field does not match
// the expected fixed-width layout. It aborts the sweep's planning phase.
type TimestampError struct {
	Raw string
	Err error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("malformed image timestamp %q: %v", e.Raw, e.Err)
}

func (e *TimestampError) Unwrap() error { return e.Err }

// ListingError reports a nonzero exit code from the image listing itself
type ListingError struct {
	Code int
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("docker images exited with code %d", e.Code)
}

// Image is one candidate row parsed from the listing
type Image struct {
	Name      string
	CreatedAt time.Time

	sortKey string
}

// Docker is the subset of the invoker the sweep needs
type Docker interface {
	ListImages(ctx context.Context) (string, int)
	RemoveImage(ctx context.Context, name string) int
}

// Policy selects stale images for removal
type Policy struct {
	// Prefix is the generated-name prefix; only <Prefix>-<8 lowercase
	// letters> rows are candidates.
	Prefix string
	// Keep is the number of old images retained in the cache.
	Keep int
	// Now overrides the clock in tests. Nil means time.Now.
	Now func() time.Time
}

func (p Policy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// parseCreatedAt parses docker's created-at rendering by dropping the
// fixed-width ±HHMM field at bytes 20–24 and parsing the remainder as
// "2006-01-02 15:04:05 MST".
func parseCreatedAt(raw string) (time.Time, error) {
	if len(raw) < 25 {
		return time.Time{}, &TimestampError{Raw: raw, Err: fmt.Errorf("shorter than the fixed-width layout")}
	}
	t, err := time.Parse(createdAtLayout, raw[:19]+raw[25:])
	if err != nil {
		return time.Time{}, &TimestampError{Raw: raw, Err: err}
	}
	return t, nil
}

// Plan parses the listing and returns the images to delete, oldest last.
// An empty result means nothing is stale enough.
func (p Policy) Plan(listing string) ([]Image, error) {
	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(p.Prefix) + "-[a-z]{8}$")
	now := p.now()

	var old []Image
	for _, line := range strings.Split(listing, "\n") {
		if line == "" {
			continue
		}
		name, createdAt, found := strings.Cut(line, "\t")
		if !found {
			return nil, &TimestampError{Raw: line, Err: fmt.Errorf("row has no created-at field")}
		}
		if !pattern.MatchString(name) {
			continue
		}
		created, err := parseCreatedAt(createdAt)
		if err != nil {
			return nil, err
		}
		if now.Sub(created) > GracePeriod {
			old = append(old, Image{
				Name:      name,
				CreatedAt: created,
				sortKey:   created.Format(compareLayout),
			})
		}
	}

	if len(old) <= p.Keep {
		return nil, nil
	}

	// Newest first by the rendered timestamp string; everything after the
	// first Keep entries is deleted. Correct only while the rendering stays
	// fixed-width, which parseCreatedAt already enforces.
	sort.SliceStable(old, func(i, j int) bool {
		return old[i].sortKey > old[j].sortKey
	})
	return old[p.Keep:], nil
}

// Sweep lists images, plans, and deletes the selected images one by one.
// Individual deletion failures do not stop the sweep and do not surface in
// the returned error, which reflects the listing and planning steps only.
func (p Policy) Sweep(ctx context.Context, d Docker, printer *ui.Printer) error {
	listing, code := d.ListImages(ctx)
	if code != 0 {
		return &ListingError{Code: code}
	}

	victims, err := p.Plan(listing)
	if err != nil {
		return err
	}
	if len(victims) == 0 {
		printer.Stepf("No images to be removed")
		return nil
	}

	now := p.now()
	for _, img := range victims {
		printer.Stepf("Image %s was created %s ago, pruning...", img.Name, units.HumanDuration(now.Sub(img.CreatedAt)))
		d.RemoveImage(ctx, img.Name)
	}
	return nil
}
