// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package depstring

import "fmt"

type InvalidDependStringError struct {
	DepString string
	Reason    string
}

func (e *InvalidDependStringError) Error() string {
	return fmt.Sprintf("invalid dependency string %q: %s", e.DepString, e.Reason)
}

func (e *InvalidDependStringError) Code() string {
	return "INVALID_DEPEND_STRING"
}
