// Package vision recognises named UI markers on captured screen frames.
//
// Each marker is a PNG under the assets directory. Matching is normalised
// cross-correlation on luminance, searched coarse-to-fine: a downscaled pass
// finds candidate positions and a full-resolution pass refines them. Scores
// lie in [-1, 1]; a marker is visible when its best score reaches the
// query threshold.
//
// Usage:
//
//	oracle := vision.NewOracle(adbClient, vision.Config{
//	    AssetsDir:        "assets/screen",
//	    DefaultThreshold: 0.95,
//	    Scale:            4,
//	})
//	if err := oracle.Refresh(ctx); err != nil {
//	    return err
//	}
//	if oracle.IsVisible("menu_battle") { ... }
package vision
