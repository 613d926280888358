// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package atom

import "fmt"

type InvalidAtomError struct {
	Atom   string
	Reason string
}

func (e *InvalidAtomError) Error() string {
	return fmt.Sprintf("invalid atom %q: %s", e.Atom, e.Reason)
}

func (e *InvalidAtomError) Code() string {
	return "INVALID_ATOM"
}
