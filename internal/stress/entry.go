package stress

import (
	"strconv"
	"strings"
)

// Batch is a contiguous slice [Start, End) of the entry index range.
type Batch struct {
	Index int
	Start int
	End   int
}

// Size returns the number of entries in the batch.
func (b Batch) Size() int {
	return b.End - b.Start
}

// Partition splits [0, total) into consecutive batches of size batch; the
// last batch may be smaller. It returns nil when either argument is < 1.
func Partition(total, batch int) []Batch {
	if total < 1 || batch < 1 {
		return nil
	}
	out := make([]Batch, 0, (total+batch-1)/batch)
	for start := 0; start < total; start += batch {
		out = append(out, Batch{
			Index: len(out),
			Start: start,
			End:   min(start+batch, total),
		})
	}
	return out
}

// Progress returns end/total as a percentage.
func Progress(end, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(end) / float64(total) * 100
}

// EntryURL is the request URL entry i is stored under.
func EntryURL(i int) string {
	return "https://example.com/file-" + strconv.Itoa(i) + ".txt"
}

// EntryBody is the payload of entry i: a label followed by size filler bytes.
func EntryBody(i, size int, filler byte) string {
	var b strings.Builder
	label := "File " + strconv.Itoa(i) + ": "
	b.Grow(len(label) + size)
	b.WriteString(label)
	for n := 0; n < size; n++ {
		b.WriteByte(filler)
	}
	return b.String()
}
