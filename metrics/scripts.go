package metrics

// The two fixed collection scripts. Each command is bracketed by a
// ===SECTION=== marker so the parser can recover every field independently;
// a command that fails on some distro simply leaves its section empty and the
// parser falls back to defaults for it.

// HealthScript gathers CPU, memory, disk and load figures.
const HealthScript = `echo "===CPU==="
top -bn1 | grep "Cpu(s)" | awk '{print 100 - $8}'
echo "===MEMORY==="
free -m | awk 'NR==2 {print $2, $3, $4}'
echo "===DISK==="
df -h / | awk 'NR==2 {print $2, $3, $4, $5}'
echo "===LOAD==="
cat /proc/loadavg | awk '{print $1, $2, $3}'
`

// SecurityScript gathers the inputs of the security scoring engine.
const SecurityScript = `echo "===PORTS==="
ss -tuln 2>/dev/null | tail -n +2
echo "===UPDATES==="
apt list --upgradable 2>/dev/null | tail -n +2 | wc -l
echo "===SECURITY_UPDATES==="
apt list --upgradable 2>/dev/null | grep -c security
echo "===SSH_FAILED==="
grep -c "Failed password" /var/log/auth.log 2>/dev/null || echo 0
echo "===FIREWALL==="
ufw status 2>/dev/null | head -1
echo "===FAIL2BAN==="
systemctl is-active fail2ban 2>/dev/null
`
