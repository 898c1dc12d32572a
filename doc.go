// Copyright 2026 The go-ecuart Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ecuart talks to the embedded controller of Surface Book 2 and
// Surface Pro (2017) devices over its UART.
//
// Every request is one exchange: stale frames are drained, the request is
// sent and acknowledged, the EC's response message is validated against the
// request and acknowledged in turn. A rolling sequence number and request
// counter tie the frames of an exchange together; they advance once per
// exchange and are persisted between processes by a CounterStore.
//
//	link, err := uart.New(uart.DefaultDevice)
//	if err != nil {
//	    return err
//	}
//	defer link.Close()
//
//	client := ecuart.NewClient(ecuart.NewEngine(link), store.NewFile(store.DefaultPath()))
//	summary, err := client.Battery(ctx, 1)
package ecuart
