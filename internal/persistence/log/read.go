package log

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/klauspost/compress/zstd"

	"manacraft.ai/internal/sim/arcana"
)

// ReadCasts decodes one closed journal file.
func ReadCasts(path string) ([]arcana.CastEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []arcana.CastEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e arcana.CastEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
