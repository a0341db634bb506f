// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package meshfmt

import (
	"encoding/csv"
	"fmt"
	"os"
)

// appendOptionRow appends one CSV row to filename, formatting float
// fields to two decimal places and everything else with fmt.Sprint —
// the same plain, locale-free convention the rest of this codebase uses
// for its own append-only log files.
func appendOptionRow(filename string, fields []interface{}) error {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	row := make([]string, len(fields))
	for i, field := range fields {
		switch v := field.(type) {
		case float32, float64:
			row[i] = fmt.Sprintf("%.2f", v)
		default:
			row[i] = fmt.Sprint(v)
		}
	}

	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// WriteOptionFile records the interpretation choices WriteScene made for
// sceneName into filename, one CSV row per switch: switch name, then its
// value(s). A reader of the mesh later (or a human skimming the option
// file) can see exactly which flags produced it without re-deriving them
// from the binary.
func WriteOptionFile(filename, sceneName string, opts Options) error {
	rows := [][]interface{}{
		{sceneName, "softskin", opts.SoftSkin},
		{sceneName, "vertexlighting", opts.VertexLighting},
		{sceneName, "attachlight", opts.AttachLight},
		{sceneName, "nocollision", opts.NoCollision},
	}
	for _, name := range opts.Keep {
		rows = append(rows, []interface{}{sceneName, "keep", name})
	}
	for _, name := range opts.KeepMaterial {
		rows = append(rows, []interface{}{sceneName, "keepmaterial", name})
	}

	for _, row := range rows {
		if err := appendOptionRow(filename, row); err != nil {
			return err
		}
	}
	return nil
}
