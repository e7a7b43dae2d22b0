package api

import "io"

// progressReader wraps a fully buffered request body and reports transfer
// percentage as the HTTP transport drains it. Reported values are strictly
// increasing integers in [0,100].
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func newProgressReader(r io.Reader, total int64, report func(int)) *progressReader {
	return &progressReader{r: r, total: total, last: -1, report: report}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.tick()
	}
	return n, err
}

// tick emits the current percentage if it advanced past the last report.
func (p *progressReader) tick() {
	if p.report == nil || p.total <= 0 {
		return
	}
	pct := int(p.read * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	if pct > p.last {
		p.last = pct
		p.report(pct)
	}
}

// finish guarantees a terminal 100 report, covering zero-length bodies and
// transports that never observed the final read.
func (p *progressReader) finish() {
	if p.report == nil || p.last >= 100 {
		return
	}
	p.last = 100
	p.report(100)
}
