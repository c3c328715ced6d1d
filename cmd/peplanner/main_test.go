/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"

	"peplanner/internal/config"
)

func setup(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvLibraryEnabled, "false")
	return dir
}

func writeLayout(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunExitCodes(t *testing.T) {
	dir := setup(t)
	good := writeLayout(t, dir, "good.json", `{"version":1,"gameName":"Tag","items":[{"id":"a","type":"cone","left":40,"top":40}]}`)
	warn := writeLayout(t, dir, "warn.json", `{"gridSize":"big","items":[]}`)
	broken := writeLayout(t, dir, "broken.json", `[1,2]`)

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"no args", []string{"peplanner"}, 0},
		{"version", []string{"peplanner", "version"}, 0},
		{"unknown", []string{"peplanner", "dance"}, 2},
		{"export missing args", []string{"peplanner", "export", good}, 2},
		{"validate ok", []string{"peplanner", "validate", good}, 0},
		{"validate warnings", []string{"peplanner", "validate", warn}, 3},
		{"validate malformed", []string{"peplanner", "validate", broken}, 1},
		{"library unconfigured", []string{"peplanner", "library", "list"}, 1},
	}
	for _, c := range cases {
		if got := run(c.args); got != c.want {
			t.Errorf("%s: exit code %d, want %d", c.name, got, c.want)
		}
	}
}

func TestRunExport(t *testing.T) {
	dir := setup(t)
	in := writeLayout(t, dir, "drill.json", `{"gameName":"Relay","items":[{"id":"a","type":"player","left":40,"top":40}]}`)
	for _, name := range []string{"drill.png", "drill.pdf"} {
		out := filepath.Join(dir, name)
		if code := run([]string{"peplanner", "export", in, out}); code != 0 {
			t.Fatalf("%s: exit code %d", name, code)
		}
		if st, err := os.Stat(out); err != nil || st.Size() == 0 {
			t.Fatalf("%s: expected a non-empty file (%v)", name, err)
		}
	}
	missing := filepath.Join(dir, "missing.json")
	if code := run([]string{"peplanner", "export", missing, filepath.Join(dir, "x.png")}); code != 1 {
		t.Fatalf("missing input: exit code %d", code)
	}
}
