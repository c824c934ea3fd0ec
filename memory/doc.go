// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package memory provides host memory resources optimized for transfers to and
from an accelerator device.

Every resource implements Resource. PinnedResource hands out page-locked memory
private to the process. SharedPinnedResource hands out a named shared-memory
segment that a group of cooperating processes map and pin together: the
process configured with local rank 0 creates the segment and owns its name,
every other rank waits for it to appear and attaches.

Allocation failures are returned as errors matching ErrOutOfMemory. Failures of
the runtime while releasing memory mean the device or the address space is in an
unknown state; they panic with a *FatalError.
*/
package memory
