// Command clipcast converts screen recordings and publishes them to
// YouTube from the terminal: sign in once, then convert or publish
// capture files through the same pipeline the run history tracks.
package main
