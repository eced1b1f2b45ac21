// Command veerctl manages the face gallery and classifier offline, without the
// camera loop or HTTP server.
package main

func main() {
	Execute()
}
