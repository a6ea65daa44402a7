// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package standalone

import (
	"net/http"
)

func InternalStateHandler(w http.ResponseWriter, r *http.Request, camera Camera) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(camera.InternalState().AsJSON())
}
