package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/victorakor/mall-surveillance-system/cmd/realtime"
	"github.com/victorakor/mall-surveillance-system/cmd/user"
	"github.com/victorakor/mall-surveillance-system/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mallwatch",
		Short: "Mall surveillance system CLI",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		realtime.Command(settings),
		user.Command(settings),
	)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Detector.ModelPath, "model", viper.GetString("detector.modelpath"), "Path to the TensorFlow Lite model file")
	rootCmd.PersistentFlags().StringVar(&settings.Detector.LabelPath, "labels", viper.GetString("detector.labelpath"), "Path to the class label file")
	rootCmd.PersistentFlags().Float64Var(&settings.Detector.Threshold, "threshold", viper.GetFloat64("detector.threshold"), "Confidence threshold for detections")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
