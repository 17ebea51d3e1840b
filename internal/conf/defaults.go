// defaults.go: default values for the application configuration.
package conf

import "github.com/spf13/viper"

// setDefaultConfig sets the default values for the configuration parameters.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Main settings
	viper.SetDefault("main.name", "mallwatch")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/mallwatch.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 10*1024*1024)

	// Web server settings
	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8000")
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.allowedorigins", []string{"*"})
	viper.SetDefault("webserver.log.enabled", true)
	viper.SetDefault("webserver.log.path", "logs/web.log")
	viper.SetDefault("webserver.log.rotation", RotationDaily)

	// Database output settings
	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "mallwatch.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "mallwatch")
	viper.SetDefault("output.mysql.password", "mallwatch")
	viper.SetDefault("output.mysql.database", "mallwatch")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	// Detector settings
	viper.SetDefault("detector.modelpath", "model/best.tflite")
	viper.SetDefault("detector.labelpath", "model/labels.txt")
	viper.SetDefault("detector.inputsize", 640)
	viper.SetDefault("detector.threshold", 0.5)
	viper.SetDefault("detector.iou", 0.45)
	viper.SetDefault("detector.threads", 0)

	// Realtime camera settings
	viper.SetDefault("realtime.cameras.sources", []string{})
	viper.SetDefault("realtime.cameras.frameinterval", 200)
	viper.SetDefault("realtime.cameras.readbackoff", 2000)
	viper.SetDefault("realtime.cameras.feedplacehold", "assets/placeholder.jpg")

	// Alert settings
	viper.SetDefault("realtime.alerts.flushdelay", 12)
	viper.SetDefault("realtime.alerts.dedupinterval", 30)
	viper.SetDefault("realtime.alerts.threathold", 60)
	viper.SetDefault("realtime.alerts.snapshotlimit", 3)

	// MQTT settings
	viper.SetDefault("realtime.mqtt.enabled", false)
	viper.SetDefault("realtime.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.mqtt.topic", "mallwatch/alerts")

	viper.SetDefault("realtime.log.enabled", true)
	viper.SetDefault("realtime.log.path", "logs/detections.log")
	viper.SetDefault("realtime.log.rotation", RotationDaily)

	// Security settings
	viper.SetDefault("security.adminemail", "admin@example.com")
	viper.SetDefault("security.adminpassword", "admin123")
	viper.SetDefault("security.sessionttl", 720)
	viper.SetDefault("security.bcryptcost", 10)
}
