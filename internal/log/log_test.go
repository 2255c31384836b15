/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/test-jitcomp/Artemis/internal/log"
)

func TestUninitialised(t *testing.T) {
	out := &bytes.Buffer{}
	defer out.Reset()
	log.Init(out)
	log.Reset()

	log.Infof("%s", "test")
	log.Infoln("test")
	log.Errorf("%s", "test")
	log.Errorln("test")
	log.Trial(log.Normal, 1, "ref.java")

	if out.String() != "" {
		t.Errorf("expected empty string, got %q", out.String())
	}
}

func TestLogInfo(t *testing.T) {
	out := &bytes.Buffer{}
	log.Init(out)
	defer log.Reset()

	t.Run("Infof", func(t *testing.T) {
		defer out.Reset()
		log.Infof("test %d", 1)
		if got, want := out.String(), "test 1"; got != want {
			t.Errorf("want %q, got %q", want, got)
		}
	})

	t.Run("Infoln", func(t *testing.T) {
		defer out.Reset()
		log.Infoln("test test")
		if got, want := out.String(), "test test\n"; got != want {
			t.Errorf("want %q, got %q", want, got)
		}
	})
}

func TestLogError(t *testing.T) {
	t.Run("Errorf", func(t *testing.T) {
		out := &bytes.Buffer{}
		log.Init(out)
		defer log.Reset()

		log.Errorf("test %d", 1)

		if got, want := out.String(), "ERROR: test 1\n"; got != want {
			t.Errorf("want %q, got %q", want, got)
		}
	})

	t.Run("Errorln", func(t *testing.T) {
		out := &bytes.Buffer{}
		log.Init(out)
		defer log.Reset()

		log.Errorln("test test")

		if got, want := out.String(), "ERROR: test test\n"; got != want {
			t.Errorf("want %q, got %q", want, got)
		}
	})
}

func TestTrial(t *testing.T) {
	out := &bytes.Buffer{}
	log.Init(out)
	defer log.Reset()

	log.Trial(log.Difference, 7, "ref/Test.java")

	got := out.String()
	if !strings.Contains(got, "DIFFERENCE") || !strings.Contains(got, "#7") || !strings.Contains(got, "ref/Test.java") {
		t.Errorf("expected trial log line to contain kind, id and detail, got %q", got)
	}
}
