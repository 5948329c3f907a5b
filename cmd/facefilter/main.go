// Facefilter - real-time face overlay filters for a camera feed
//
// Serves a dashboard with a live preview, applies filters on demand and
// publishes the filtered video over WebRTC.
package main

func main() {
	Execute()
}
