// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
Package logging configures the process-wide loggers.

All packages log through the logrus standard logger, imported as log. This
package sets its level, its single-line format and its output; standard
library log output is redirected to the same writer.
*/
package logging
