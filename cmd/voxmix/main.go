// SPDX-License-Identifier: EPL-2.0

// Command voxmix records a microphone over an optional background track
// and plays recordings back.
package main

func main() {
	Execute()
}
