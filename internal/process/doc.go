// Package process supervises long-running child processes.
//
// alauto uses it to keep a private adb server alive when adb.managed is set.
//
// Features:
//   - Start/stop with SIGTERM then SIGKILL to the whole process group
//   - Automatic restart on unexpected exit, bounded by MaxRestartAttempts
//   - Optional health check that kills a hung child
//   - Line-by-line capture of child stdout/stderr into the debug log
//
// Example usage:
//
//	mgr := process.NewManager(process.DefaultConfig(
//	    "adb-server", "adb", []string{"-P", "5037", "nodaemon", "server"},
//	))
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process
