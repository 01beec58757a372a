package tradelog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"time"
)

// ReadOrders returns the orders journaled on day. A missing file yields no entries.
func (j *Journal) ReadOrders(day time.Time) ([]OrderEntry, error) {
	return readLines[OrderEntry](j.OrdersPath(day))
}

// ReadDecisions returns the decisions journaled on day.
func (j *Journal) ReadDecisions(day time.Time) ([]DecisionEntry, error) {
	return readLines[DecisionEntry](j.DecisionsPath(day))
}

// readLines skips lines that do not decode.
func readLines[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, sc.Err()
}
