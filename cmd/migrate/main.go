package main

import (
	"flag"
	"log"

	"vacationplanner/internal/audit"
	"vacationplanner/internal/calendar"
	"vacationplanner/internal/config"
	"vacationplanner/internal/identity"
	kafkaoutbox "vacationplanner/internal/messaging/kafka"
	"vacationplanner/internal/session"
	"vacationplanner/internal/shared/connection"
	"vacationplanner/internal/vacation"
)

// migrate runs the schema forward with gorm.AutoMigrate rather than a
// dedicated SQL-migration tool, matching how every service reaches the
// database elsewhere in this codebase — purely through GORM, with no
// raw-SQL migrations directory in the tree to ground a file-based
// migrator on.
func main() {
	log.SetFlags(0)
	status := flag.Bool("status", false, "print pending model list and exit without migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	gormDB, err := connection.ConnectGORMWithRetry(
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode, 3,
	)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	models := []any{
		&identity.Company{},
		&identity.Function{},
		&identity.Team{},
		&identity.User{},
		&identity.TeamMembership{},
		&identity.ManagerAssignment{},
		&session.RefreshTokenRecord{},
		&session.InviteToken{},
		&session.PasswordResetToken{},
		&calendar.VacationPeriod{},
		&calendar.VacationAllocation{},
		&vacation.Request{},
		&audit.Event{},
		&kafkaoutbox.OutboxEvent{},
	}

	if *status {
		for _, m := range models {
			log.Printf("pending: %T", m)
		}
		return
	}

	if err := gormDB.AutoMigrate(models...); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	log.Println("migration complete")
}
