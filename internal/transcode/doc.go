// Package transcode converts raw recordings into distributable MP4.
//
// Runtime manages the codec runtime: two binary assets (the native host
// and the codec module it loads) fetched over HTTP into a cache directory
// exactly once per instance. Engine drives one conversion at a time
// through the runtime, streaming the host's raw progress samples through
// a normalizing clamp before they reach the caller. Conversions are not
// cancelable once started; callers wait for completion or failure.
package transcode
