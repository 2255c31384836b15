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

package vm

import (
	"fmt"

	"github.com/test-jitcomp/Artemis/internal/config"
)

// New builds the Vm adapter selected by cfg.Type.
func New(cfg config.Jvm) (Vm, error) {
	switch cfg.Type {
	case config.JvmHotSpot:
		return NewHotSpot(cfg.JavaHome, cfg.Classpath)
	case config.JvmOpenJ9:
		return NewOpenJ9(cfg.JavaHome, cfg.Classpath)
	case config.JvmGraal:
		return NewGraal(cfg.JavaHome, cfg.Classpath)
	case config.JvmHostArt:
		return NewHostArt(cfg.HostHome, cfg.MinAPI)
	case config.JvmTargetArt:
		return NewTargetArt(cfg.AndroidHome, cfg.BuildTools, cfg.SerialNo, cfg.AppProcess, cfg.MinAPI)
	default:
		return nil, fmt.Errorf("unsupported jvm type: %q", cfg.Type)
	}
}
