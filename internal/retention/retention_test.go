package retention

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dockpack/dockpack/internal/ui"
)

var testNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

// row renders a listing line the way docker images --format does
func row(name string, created time.Time) string {
	return fmt.Sprintf("%s\t%s +0000 UTC", name, created.Format("2006-01-02 15:04:05"))
}

func listing(rows ...string) string {
	return strings.Join(rows, "\n") + "\n"
}

func names(images []Image) []string {
	var out []string
	for _, img := range images {
		out = append(out, img.Name)
	}
	return out
}

func TestPlanEmptyListing(t *testing.T) {
	p := Policy{Prefix: "app", Keep: 5, Now: func() time.Time { return testNow }}

	victims, err := p.Plan("")
	require.NoError(t, err)
	assert.Empty(t, victims)
}

func TestPlanAllWithinGracePeriod(t *testing.T) {
	p := Policy{Prefix: "app", Keep: 0, Now: func() time.Time { return testNow }}

	victims, err := p.Plan(listing(
		row("app-abcdefgh", testNow.Add(-10*time.Minute)),
		row("app-ijklmnop", testNow.Add(-59*time.Minute)),
	))
	require.NoError(t, err)
	assert.Empty(t, victims, "images younger than the grace period must never be removed, even with keep 0")
}

func TestPlanExactlyOneHourOldIsNotStale(t *testing.T) {
	p := Policy{Prefix: "app", Keep: 0, Now: func() time.Time { return testNow }}

	victims, err := p.Plan(listing(row("app-abcdefgh", testNow.Add(-GracePeriod))))
	require.NoError(t, err)
	assert.Empty(t, victims)
}

func TestPlanOldCountWithinKeep(t *testing.T) {
	p := Policy{Prefix: "app", Keep: 3, Now: func() time.Time { return testNow }}

	victims, err := p.Plan(listing(
		row("app-abcdefgh", testNow.Add(-2*time.Hour)),
		row("app-ijklmnop", testNow.Add(-3*time.Hour)),
		row("app-qrstuvwx", testNow.Add(-4*time.Hour)),
	))
	require.NoError(t, err)
	assert.Empty(t, victims)
}

func TestPlanRemovesOldestBeyondKeep(t *testing.T) {
	p := Policy{Prefix: "app", Keep: 2, Now: func() time.Time { return testNow }}

	// Newest first, matching docker's listing order
	victims, err := p.Plan(listing(
		row("app-aaaaaaaa", testNow.Add(-2*time.Hour)),
		row("app-bbbbbbbb", testNow.Add(-3*time.Hour)),
		row("app-cccccccc", testNow.Add(-4*time.Hour)),
		row("app-dddddddd", testNow.Add(-26*time.Hour)),
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"app-cccccccc", "app-dddddddd"}, names(victims),
		"the two most recent old images survive, the rest go oldest-last")
}

func TestPlanKeepZeroRemovesAllOld(t *testing.T) {
	p := Policy{Prefix: "app", Keep: 0, Now: func() time.Time { return testNow }}

	victims, err := p.Plan(listing(
		row("app-aaaaaaaa", testNow.Add(-2*time.Hour)),
		row("app-bbbbbbbb", testNow.Add(-30*time.Minute)),
		row("app-cccccccc", testNow.Add(-5*time.Hour)),
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"app-aaaaaaaa", "app-cccccccc"}, names(victims))
}

func TestPlanGraceAndKeepCombined(t *testing.T) {
	p := Policy{Prefix: "app", Keep: 1, Now: func() time.Time { return testNow }}

	victims, err := p.Plan(listing(
		row("app-aaaaaaaa", testNow.Add(-5*time.Minute)),
		row("app-bbbbbbbb", testNow.Add(-90*time.Minute)),
		row("app-cccccccc", testNow.Add(-8*time.Hour)),
		row("app-dddddddd", testNow.Add(-48*time.Hour)),
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"app-cccccccc", "app-dddddddd"}, names(victims),
		"young image is exempt, newest old image is kept")
}

func TestPlanNameFiltering(t *testing.T) {
	old := testNow.Add(-2 * time.Hour)
	p := Policy{Prefix: "foo", Keep: 0, Now: func() time.Time { return testNow }}

	victims, err := p.Plan(listing(
		row("foo-bar", old),        // suffix is not 8 letters
		row("foo-abcdefgh", old),   // matches
		row("foo-abcdefghi", old),  // 9 letters
		row("foo-ABCDEFGH", old),   // uppercase
		row("foo-abcdefg1", old),   // digit
		row("xfoo-abcdefgh", old),  // wrong prefix
		row("foo-abcdefgh-x", old), // trailing junk
		row("ubuntu", old),
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"foo-abcdefgh"}, names(victims))
}

func TestPlanPrefixIsQuoted(t *testing.T) {
	old := testNow.Add(-2 * time.Hour)
	p := Policy{Prefix: "my.app", Keep: 0, Now: func() time.Time { return testNow }}

	victims, err := p.Plan(listing(
		row("myxapp-abcdefgh", old),
		row("my.app-abcdefgh", old),
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"my.app-abcdefgh"}, names(victims),
		"regex metacharacters in the prefix must match literally")
}

func TestPlanIgnoresUnmatchedRowsWithOddTimestamps(t *testing.T) {
	p := Policy{Prefix: "app", Keep: 0, Now: func() time.Time { return testNow }}

	victims, err := p.Plan("ubuntu\tnot a timestamp\n" +
		row("app-abcdefgh", testNow.Add(-2*time.Hour)) + "\n")
	require.NoError(t, err, "rows filtered out by name are never timestamp-parsed")
	assert.Equal(t, []string{"app-abcdefgh"}, names(victims))
}

func TestPlanMalformedTimestamp(t *testing.T) {
	p := Policy{Prefix: "app", Keep: 0, Now: func() time.Time { return testNow }}

	_, err := p.Plan("app-abcdefgh\t2026-08-25\n")
	var tsErr *TimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, "2026-08-25", tsErr.Raw)
}

func TestPlanRowWithoutTab(t *testing.T) {
	p := Policy{Prefix: "app", Keep: 0, Now: func() time.Time { return testNow }}

	_, err := p.Plan("app-abcdefgh 2026-08-25 10:00:00 +0000 UTC\n")
	var tsErr *TimestampError
	require.ErrorAs(t, err, &tsErr)
}

func TestParseCreatedAtSlicesFixedOffset(t *testing.T) {
	got, err := parseCreatedAt("2026-08-25 09:30:00 +0000 UTC")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC), got.UTC())
}

func TestParseCreatedAtTooShort(t *testing.T) {
	_, err := parseCreatedAt("2026-08-25 09:30:00")
	var tsErr *TimestampError
	require.ErrorAs(t, err, &tsErr)
}

type fakeDocker struct {
	listing     string
	listCode    int
	listCalls   int
	removed     []string
	removeCodes map[string]int
}

func (f *fakeDocker) ListImages(ctx context.Context) (string, int) {
	f.listCalls++
	return f.listing, f.listCode
}

func (f *fakeDocker) RemoveImage(ctx context.Context, name string) int {
	f.removed = append(f.removed, name)
	return f.removeCodes[name]
}

func discardPrinter() *ui.Printer {
	return ui.NewPrinterTo(io.Discard)
}

func TestSweepListingFailure(t *testing.T) {
	d := &fakeDocker{listCode: 1}
	p := Policy{Prefix: "app", Keep: 0, Now: func() time.Time { return testNow }}

	err := p.Sweep(context.Background(), d, discardPrinter())
	var listErr *ListingError
	require.ErrorAs(t, err, &listErr)
	assert.Equal(t, 1, listErr.Code)
	assert.Empty(t, d.removed)
}

func TestSweepNothingToRemove(t *testing.T) {
	d := &fakeDocker{listing: row("app-abcdefgh", testNow.Add(-10*time.Minute)) + "\n"}
	p := Policy{Prefix: "app", Keep: 0, Now: func() time.Time { return testNow }}

	require.NoError(t, p.Sweep(context.Background(), d, discardPrinter()))
	assert.Empty(t, d.removed)
}

func TestSweepRemovesEachSelectedImage(t *testing.T) {
	d := &fakeDocker{
		listing: listing(
			row("app-aaaaaaaa", testNow.Add(-2*time.Hour)),
			row("app-bbbbbbbb", testNow.Add(-3*time.Hour)),
			row("app-cccccccc", testNow.Add(-4*time.Hour)),
		),
		removeCodes: map[string]int{"app-bbbbbbbb": 1},
	}
	p := Policy{Prefix: "app", Keep: 1, Now: func() time.Time { return testNow }}

	require.NoError(t, p.Sweep(context.Background(), d, discardPrinter()),
		"individual deletion failures do not surface")
	assert.Equal(t, []string{"app-bbbbbbbb", "app-cccccccc"}, d.removed,
		"a failed deletion does not stop the remaining ones")
}

func TestSweepParseErrorAbortsBeforeDeleting(t *testing.T) {
	d := &fakeDocker{listing: "app-abcdefgh\tgarbage timestamp here xx\n"}
	p := Policy{Prefix: "app", Keep: 0, Now: func() time.Time { return testNow }}

	err := p.Sweep(context.Background(), d, discardPrinter())
	var tsErr *TimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Empty(t, d.removed)
}
