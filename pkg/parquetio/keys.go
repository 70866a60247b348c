package parquetio

import "io"

// SummaryKeys reads the map unit keys of a summary artifact in row order.
// The index builder replays these to assign row positions.
func SummaryKeys(path string) ([]string, error) {
	r, err := openTable(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	req, err := r.require("mukey")
	if err != nil {
		return nil, err
	}
	mukey := req[0]

	var keys []string
	for {
		row, err := r.next()
		if err == io.EOF {
			return keys, nil
		}
		if err != nil {
			return nil, err
		}
		for _, v := range row {
			if v.Column() == mukey && !v.IsNull() {
				keys = append(keys, v.String())
			}
		}
	}
}
