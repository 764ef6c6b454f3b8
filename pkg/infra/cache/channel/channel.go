package channel

type Channel string

const (
	RecruitEventsChannel Channel = "recruit_events"
)
