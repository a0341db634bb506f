// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package handlers

import (
	"github.com/ucfb-tools/unmunge/internal/chunk"
	"github.com/ucfb-tools/unmunge/internal/dispatch"
)

// Ignored handles tags the tool deliberately produces no output for
// (gmod/plnp): success, no file, no error.
func Ignored(ctx *dispatch.Context, r *chunk.Reader, group *dispatch.Group) error {
	return nil
}
