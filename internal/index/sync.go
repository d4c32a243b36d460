package index

import (
	"log/slog"

	"github.com/starford/gittodo/internal/checksum"
	"github.com/starford/gittodo/internal/parser"
)

// Source is the read side of a todo document.
type Source interface {
	Raw() ([]byte, error)
}

// Sync brings the index up to date with the document. It reports whether the
// document changed since the last sync; unchanged content is not re-indexed.
func Sync(db TodoIndex, doc Source, logger *slog.Logger) (bool, error) {
	data, err := doc.Raw()
	if err != nil {
		return false, err
	}
	sum := checksum.Sum(data)

	prev, err := db.Checksum()
	if err != nil {
		return false, err
	}
	if prev == sum {
		return false, nil
	}

	res := parser.Parse(data)
	if err := db.Replace(sum, res.Entries); err != nil {
		return false, err
	}
	logger.Debug("sync: indexed",
		slog.String("checksum", checksum.Short(sum)),
		slog.Int("todos", len(res.Entries)))
	return true, nil
}
