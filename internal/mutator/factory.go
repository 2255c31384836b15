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

package mutator

import "github.com/test-jitcomp/Artemis/internal/config"

// New builds the configured Mutator adapter. The only policy this codebase
// supports today is "artemis"; validate has already rejected anything else
// by the time New is called from a loaded Config.
func New(java config.Java, ax config.Artemis) (Mutator, error) {
	return NewArtemis(java, ax)
}
