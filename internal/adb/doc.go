// Package adb is the device channel: it connects to an Android device or
// emulator through the adb command line, captures the screen and sends taps.
//
// Client satisfies vision.Capturer and touch.Tapper. Server optionally runs
// a private adb server under process supervision so a crashed server is
// restarted without taking the bot down.
//
// Usage:
//
//	client := adb.NewClient(adb.Config{Service: "127.0.0.1:5555", Port: 5037}, nil)
//	if err := client.Connect(ctx); err != nil {
//	    return err // wraps adb.ErrConnectionFailed
//	}
//	img, err := client.Screencap(ctx)
package adb
