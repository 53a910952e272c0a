package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Forwarding pass, every five minutes
	CronScheduleForward string `env:"CRON_SCHEDULE_FORWARD" envDefault:"0 */5 * * * *"`
}
