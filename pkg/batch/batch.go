// SPDX-License-Identifier: Apache-2.0
// Package batch runs ordered lists of shell commands as temporary scripts,
// with a retry budget and a persisted log per step.
package batch

import (
	"strings"

	"github.com/provide-io/trellis/pkg/config"
	"github.com/provide-io/trellis/pkg/platform"
)

// Batch is one logical step: the commands are written to a script in Dir,
// executed with the process environment plus Env, then the script is deleted.
type Batch struct {
	Task  string
	Dir   string
	Lines []string
	Env   *config.Table
}

// Script renders the batch for the interpreter of family.
func (b *Batch) Script(family platform.Family) string {
	var sb strings.Builder
	nl := "\n"
	if family == platform.Windows {
		nl = "\r\n"
		sb.WriteString("@echo off" + nl)
	} else {
		sb.WriteString("#!/bin/sh" + nl)
	}
	for _, line := range b.Lines {
		sb.WriteString(line)
		sb.WriteString(nl)
	}
	return sb.String()
}

// Environ returns base followed by the batch's table. Later entries win for
// both exec.Cmd and cmd.exe, so table keys shadow the inherited environment.
func (b *Batch) Environ(base []string) []string {
	env := append([]string(nil), base...)
	if b.Env != nil {
		env = append(env, b.Env.Environ()...)
	}
	return env
}
