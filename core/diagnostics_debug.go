// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:build !release

package core

// DiagnosticsCompiled is false in builds tagged release, where
// validation messages are never collected.
const DiagnosticsCompiled = true
