package service

import "time"

func (s *DashboardService) SetNow(now func() time.Time) { s.now = now }
