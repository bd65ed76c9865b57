package notify

const globalStyles = `
.psm-panel { position: fixed; background: white; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); z-index: 1000; font-family: Arial, sans-serif; }
.psm-panel-header { display: flex; justify-content: space-between; align-items: center; padding: 10px; border-bottom: 1px solid #dee2e6; background: #f8f9fa; border-radius: 8px 8px 0 0; }
.psm-panel-content { padding: 15px; max-height: 80vh; overflow-y: auto; }
.psm-button { padding: 5px 10px; border: none; border-radius: 4px; cursor: pointer; font-size: 14px; background: #007bff; color: white; text-decoration: none; display: inline-block; }
.psm-button:hover { background: #0056b3; }
.psm-button:disabled { background: #6c757d; cursor: not-allowed; }
.psm-input, .psm-select { padding: 5px; border: 1px solid #dee2e6; border-radius: 4px; font-size: 14px; width: 100%; }
.psm-notification { position: fixed; top: 20px; right: 20px; padding: 10px 20px; border-radius: 4px; color: white; font-size: 14px; z-index: 1001; animation: psmSlideIn 0.3s ease-out; }
.psm-notification + .psm-notification { top: 70px; }
@keyframes psmSlideIn { from { transform: translateX(100%); } to { transform: translateX(0); } }
.psm-notification.success { background: #28a745; }
.psm-notification.error { background: #dc3545; }
.psm-notification.warning { background: #ffc107; color: #000; }
.psm-notification.info { background: #17a2b8; }
.psm-modal { position: fixed; inset: 0; background: rgba(0,0,0,0.5); display: flex; align-items: center; justify-content: center; z-index: 1002; }
.psm-modal-content { background: white; padding: 20px; border-radius: 8px; max-width: 500px; width: 90%; }
.psm-status-badge { position: fixed; bottom: 10px; right: 10px; background: #343a40; color: white; padding: 4px 8px; border-radius: 4px; font-size: 12px; opacity: 0.7; z-index: 999; }
.disabled-option { color: #999; background-color: #f5f5f5; }
`

const dismissScript = `
document.querySelectorAll('.psm-notification[data-psm-duration]').forEach(function (n) {
  setTimeout(function () { n.remove(); }, parseInt(n.dataset.psmDuration, 10) || 3000);
});
document.addEventListener('click', function (e) {
  if (e.target.matches('[data-psm-close]')) { var m = e.target.closest('.psm-modal'); if (m) m.remove(); }
});
`
