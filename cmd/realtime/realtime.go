package realtime

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/pipeline"
)

// Command creates a new command for realtime surveillance.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Run the surveillance pipeline and dashboard API",
		Long:  "Start the camera workers, detection pipeline and the dashboard HTTP API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.RunRealtime(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the dashboard HTTP API")
	cmd.Flags().StringSliceVar(&settings.Realtime.Cameras.Sources, "sources", viper.GetStringSlice("realtime.cameras.sources"), "Default camera source URLs")
	cmd.Flags().IntVar(&settings.Realtime.Cameras.FrameInterval, "frameinterval", viper.GetInt("realtime.cameras.frameinterval"), "Milliseconds between processed frames per camera")
	cmd.Flags().BoolVar(&settings.Realtime.MQTT.Enabled, "mqtt", viper.GetBool("realtime.mqtt.enabled"), "Enable MQTT alert publishing")
	cmd.Flags().StringVar(&settings.Realtime.MQTT.Broker, "mqttbroker", viper.GetString("realtime.mqtt.broker"), "MQTT broker URL")
	cmd.Flags().StringVar(&settings.Realtime.Log.Path, "logpath", viper.GetString("realtime.log.path"), "Path to the detection log file")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
